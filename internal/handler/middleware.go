package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// IdentityClaims are the claims carried by access tokens. The subject is the
// numeric user id.
type IdentityClaims struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseIdentity validates an HS256 token and returns the caller it names.
func ParseIdentity(secret []byte, tokenString string) (domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return domain.User{}, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return domain.User{}, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.User{}, &domain.ErrUnauthorized{Message: "token subject is not a user id"}
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.User{}, &domain.ErrUnauthorized{Message: err.Error()}
	}
	return domain.User{ID: id, Name: claims.Name, Email: claims.Email, Role: role}, nil
}

// SignIdentity issues an HS256 token for user. Tokens are normally issued by
// the identity provider; this serves local development and tests.
func SignIdentity(secret []byte, user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role:  string(user.Role),
		Name:  user.Name,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IdentityMiddleware validates Bearer tokens and injects the caller into context.
func IdentityMiddleware(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			user, err := ParseIdentity(secret, parts[1])
			if err != nil {
				logger.Warn("auth: rejected token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated caller from context.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}

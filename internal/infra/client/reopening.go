package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var (
	_ port.ReopeningService = (*ReopeningClient)(nil)
	_ port.ReopeningService = (*LocalReopening)(nil)
)

// ReopeningClient calls the reopening-approval workflow.
type ReopeningClient struct {
	base
}

// NewReopeningClient creates a new ReopeningClient.
func NewReopeningClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ReopeningClient {
	return &ReopeningClient{base: base{
		service:    "reopening",
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}}
}

type reopeningRequest struct {
	UserID int64       `json:"userId"`
	Role   domain.Role `json:"role"`
}

type reopeningResponse struct {
	Approved bool `json:"approved"`
}

// ExecuteReopening asks the workflow to approve reopening a questionnaire.
func (c *ReopeningClient) ExecuteReopening(ctx context.Context, questionnaireID int64, user domain.User) (bool, error) {
	ctx, span := tracer.Start(ctx, "ReopeningClient.ExecuteReopening")
	defer span.End()
	span.SetAttributes(attribute.Int64("questionnaire.id", questionnaireID), attribute.String("role", string(user.Role)))

	var out reopeningResponse
	path := fmt.Sprintf("/v1/questionnaires/%d/reopenings", questionnaireID)
	if err := c.call(ctx, http.MethodPost, path, reopeningRequest{UserID: user.ID, Role: user.Role}, &out); err != nil {
		return false, err
	}
	return out.Approved, nil
}

// LocalReopening approves reopenings requested by Admin or TecnicoPais users.
// It stands in for the workflow when no reopening API is configured.
type LocalReopening struct {
	logger *zap.Logger
}

// NewLocalReopening creates a LocalReopening.
func NewLocalReopening(logger *zap.Logger) *LocalReopening {
	return &LocalReopening{logger: logger}
}

// ExecuteReopening approves by role.
func (l *LocalReopening) ExecuteReopening(_ context.Context, questionnaireID int64, user domain.User) (bool, error) {
	approved := user.Role == domain.RoleAdmin || user.Role == domain.RoleTecnicoPais
	l.logger.Info("local reopening decision",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("approved", approved),
	)
	return approved, nil
}

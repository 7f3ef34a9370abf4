// Package client holds the HTTP adapters for the external collaborators of the
// certification core: expiration notifications and questionnaire reopening.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// statusError is a non-2xx answer from a collaborator.
type statusError struct {
	Service string
	Status  int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Service, e.Status)
}

// retryable keeps client errors (4xx) out of the retry loop.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}

// base is the transport shared by the collaborator clients.
type base struct {
	service    string
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// call sends one JSON request with retry inside the circuit breaker and decodes
// the response into out when out is non-nil.
func (b *base) call(ctx context.Context, method, path string, in, out any) error {
	requestID := uuid.NewString()

	_, err := b.cb.Execute(func() (any, error) {
		_, innerErr := resilience.RetryIf(ctx, b.cfg, retryable, func() error {
			var body *bytes.Reader
			if in != nil {
				raw, err := json.Marshal(in)
				if err != nil {
					return err
				}
				body = bytes.NewReader(raw)
			} else {
				body = bytes.NewReader(nil)
			}

			req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Request-ID", requestID)

			resp, err := b.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return &statusError{Service: b.service, Status: resp.StatusCode}
			}
			if out == nil {
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)
		})
		return nil, innerErr
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: b.service}
	}
	if err != nil {
		return &domain.ErrExternalService{Service: b.service, Err: err}
	}
	return nil
}

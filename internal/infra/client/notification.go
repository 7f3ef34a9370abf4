package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var _ port.NotificationService = (*NotificationClient)(nil)

// NotificationClient calls the Notification API that owns expiration e-mails.
type NotificationClient struct {
	base
}

// NewNotificationClient creates a new NotificationClient.
func NewNotificationClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *NotificationClient {
	return &NotificationClient{base: base{
		service:    "notification",
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}}
}

type notifiedResponse struct {
	Notified bool `json:"notified"`
}

// ExpirationNotification is the body sent to the Notification API.
type ExpirationNotification struct {
	UserID          int64      `json:"userId"`
	UserName        string     `json:"userName"`
	UserEmail       string     `json:"userEmail"`
	CertificationID int64      `json:"certificationId"`
	CompanyID       int64      `json:"companyId"`
	CaseNumber      string     `json:"caseNumber"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// HasBeenNotified asks whether the user already got the expiration notice for a certification.
func (c *NotificationClient) HasBeenNotified(ctx context.Context, userID, certificationID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "NotificationClient.HasBeenNotified")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.Int64("process.id", certificationID))

	var out notifiedResponse
	path := fmt.Sprintf("/v1/notifications/expiration?userId=%d&certificationId=%d", userID, certificationID)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Notified, nil
}

// SendExpirationNotification dispatches the expiration notice.
func (c *NotificationClient) SendExpirationNotification(ctx context.Context, user domain.User, certification domain.CertificationProcess, companyID int64) error {
	ctx, span := tracer.Start(ctx, "NotificationClient.SendExpirationNotification")
	defer span.End()
	span.SetAttributes(attribute.Int64("process.id", certification.ID), attribute.Int64("company.id", companyID))

	return c.call(ctx, http.MethodPost, "/v1/notifications/expiration", ExpirationNotification{
		UserID:          user.ID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		CertificationID: certification.ID,
		CompanyID:       companyID,
		CaseNumber:      certification.CaseNumber,
		ExpiresAt:       certification.ExpiresAt,
	}, nil)
}

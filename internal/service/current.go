package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

// ResolveCurrentCertification picks the process shown as a company's current
// certification, in priority order:
//  1. the highest-id process that is not completed;
//  2. the completed, unexpired process expiring last;
//  3. the completed, expired process that expired last;
//  4. the highest-id process.
//
// It returns nil only for an empty slice.
func ResolveCurrentCertification(processes []domain.CertificationProcess, now time.Time) *domain.CertificationProcess {
	if len(processes) == 0 {
		return nil
	}

	var inFlight, valid, expired, latest *domain.CertificationProcess
	for i := range processes {
		p := &processes[i]
		if latest == nil || p.ID > latest.ID {
			latest = p
		}
		if p.Status != domain.StatusCompleted {
			if inFlight == nil || p.ID > inFlight.ID {
				inFlight = p
			}
			continue
		}
		if p.ExpiresAt == nil {
			continue
		}
		if p.ExpiresAt.After(now) {
			if valid == nil || p.ExpiresAt.After(*valid.ExpiresAt) {
				valid = p
			}
		} else if expired == nil || p.ExpiresAt.After(*expired.ExpiresAt) {
			expired = p
		}
	}

	switch {
	case inFlight != nil:
		return inFlight
	case valid != nil:
		return valid
	case expired != nil:
		return expired
	default:
		return latest
	}
}

// ExpirationAlert reports whether the process expires within the alert window.
// Already expired processes are alerted too.
func ExpirationAlert(p *domain.CertificationProcess, now time.Time, months int) bool {
	if p == nil || p.ExpiresAt == nil {
		return false
	}
	return !p.ExpiresAt.After(now.AddDate(0, months, 0))
}

// DashboardService serves the company certification dashboard.
type DashboardService struct {
	store    port.Store
	notifier port.NotificationService
	rules    Rules
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDashboardService creates the dashboard service. notifier may be nil.
func NewDashboardService(store port.Store, notifier port.NotificationService, rules Rules, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, notifier: notifier, rules: rules, metrics: metrics, logger: logger}
}

// CompanyCertification resolves the current certification of a company and
// dispatches the expiration notification when due. Notification failures are
// logged and counted, never returned.
func (s *DashboardService) CompanyCertification(ctx context.Context, companyID int64, user domain.User, lang domain.Language) (*domain.CurrentCertification, error) {
	ctx, span := certTracer.Start(ctx, "DashboardService.CompanyCertification")
	defer span.End()
	span.SetAttributes(attribute.Int64("company.id", companyID))

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	processes, err := s.store.ListProcessesByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	view := &domain.CurrentCertification{
		CurrentResult:   company.CurrentResult,
		SuggestedResult: company.SuggestedResult,
	}

	now := s.rules.now()
	current := ResolveCurrentCertification(processes, now)
	if current == nil {
		return view, nil
	}
	view.Process = current
	view.StatusLabel = current.Status.Label(lang)
	view.ExpirationAlert = ExpirationAlert(current, now, s.rules.ExpirationAlertMonths)

	if view.ExpirationAlert {
		view.NotificationSent = s.notifyExpiration(ctx, user, current)
	}
	return view, nil
}

func (s *DashboardService) notifyExpiration(ctx context.Context, user domain.User, p *domain.CertificationProcess) bool {
	if s.notifier == nil {
		return false
	}

	notified, err := s.notifier.HasBeenNotified(ctx, user.ID, p.ID)
	if err != nil {
		s.metrics.IncrNotification("failed")
		s.logger.Warn("notification lookup failed",
			zap.Int64("process_id", p.ID),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return false
	}
	if notified {
		return false
	}

	if err := s.notifier.SendExpirationNotification(ctx, user, *p, p.CompanyID); err != nil {
		s.metrics.IncrNotification("failed")
		s.logger.Warn("expiration notification failed",
			zap.Int64("process_id", p.ID),
			zap.Int64("company_id", p.CompanyID),
			zap.Error(err),
		)
		return false
	}

	s.metrics.IncrNotification("sent")
	return true
}

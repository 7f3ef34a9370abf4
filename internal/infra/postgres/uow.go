package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var txTracer = otel.Tracer("infra/postgres")

// TxRunner is the retrying unit of work. Each attempt opens a fresh
// transaction and re-runs the whole closure, so entities are re-read.
// Only transient faults are retried; business errors return immediately.
type TxRunner struct {
	db       *sqlx.DB
	cfg      resilience.Config
	timeout  time.Duration
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTxRunner creates a TxRunner. A zero timeout leaves transaction duration
// to the caller's context and the driver.
func NewTxRunner(db *sqlx.DB, cfg resilience.Config, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *TxRunner {
	return &TxRunner{
		db:       db,
		cfg:      cfg,
		timeout:  timeout,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

var _ port.UnitOfWork = (*TxRunner)(nil)

func (r *TxRunner) RunInTx(ctx context.Context, operation string, fn func(ctx context.Context, store port.Store) error) error {
	ctx, span := txTracer.Start(ctx, "TxRunner.RunInTx")
	defer span.End()
	span.SetAttributes(attribute.String("tx.operation", operation))

	if err := r.bulkhead.Acquire(ctx); err != nil {
		return fmt.Errorf("%s: waiting for a transaction slot: %w", operation, err)
	}
	defer r.bulkhead.Release()

	start := time.Now()
	attempts, err := resilience.RetryIf(ctx, r.cfg, retryable, func() error {
		return r.runOnce(ctx, fn)
	})
	span.SetAttributes(attribute.Int("tx.attempts", attempts))

	if err != nil && retryable(err) {
		r.metrics.RecordTx(operation, attempts, true, time.Since(start))
		r.logger.Error("transaction failed after retries",
			zap.String("operation", operation),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transient failure")
		return &domain.ErrTransient{Operation: operation, Attempts: attempts, Err: err}
	}

	r.metrics.RecordTx(operation, attempts, false, time.Since(start))
	if attempts > 1 {
		r.logger.Warn("transaction succeeded after retry",
			zap.String("operation", operation),
			zap.Int("attempts", attempts),
		)
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, store port.Store) error) error {
	if r.timeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &Store{db: r.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	return !domain.IsBusinessError(err) && IsTransient(err)
}

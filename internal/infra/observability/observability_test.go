package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLifecycleSnapshot(t *testing.T) {
	m := NewMetrics()

	m.IncrTransition("begin_process")
	m.IncrTransition("begin_process")
	m.IncrRejection("assign_auditor")
	m.RecordTx("record_answer", 3, false, time.Millisecond)
	m.RecordTx("finalize_questionnaire", 1, true, time.Millisecond)
	m.IncrCacheHit("tree")
	m.IncrCacheMiss("tree")
	m.IncrCacheMiss("tree")
	m.IncrNotification("sent")

	snap := m.LifecycleSnapshot()
	assert.Equal(t, 2.0, snap.Transitions["begin_process"])
	assert.Equal(t, 1.0, snap.Rejections["assign_auditor"])
	assert.Equal(t, 4.0, snap.TxAttempts)
	assert.Equal(t, 2.0, snap.TxRetries)
	assert.Equal(t, 1.0, snap.TxFailures)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRate, 1e-9)
	assert.Equal(t, 1.0, snap.NotificationsSent)
	assert.Equal(t, 0.0, snap.NotificationFailures)
}

func TestLifecycleSnapshot_Empty(t *testing.T) {
	snap := NewMetrics().LifecycleSnapshot()
	assert.NotNil(t, snap.Transitions)
	assert.Zero(t, snap.CacheHitRate)
}

func TestNewMetrics_PrivateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := NewMetrics(), NewMetrics()
	a.IncrTransition("begin_process")
	assert.Zero(t, b.LifecycleSnapshot().Transitions["begin_process"])
}

func TestZapLoggerMiddleware_LevelByStatus(t *testing.T) {
	cases := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		core, logs := observer.New(zapcore.DebugLevel)
		h := ZapLoggerMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/questionnaires/1", nil))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, tc.level, entry.Level)
		assert.EqualValues(t, tc.status, entry.ContextMap()["status"])
	}
}

func TestZapLoggerMiddleware_TraceID(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	core, logs := observer.New(zapcore.InfoLevel)
	h := TracingMiddleware(ZapLoggerMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", logs.All()[0].ContextMap()["trace_id"])
}

func TestWithIdentity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithIdentity(zap.New(core), 200, "Auditor").Info("answer recorded")

	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 200, fields["user_id"])
	assert.Equal(t, "Auditor", fields["role"])
}

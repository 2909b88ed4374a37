package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/config"
)

func TestInitTracingWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.AppConfig{Name: "wiki"}, config.TracingConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingExportsToEndpointURL(t *testing.T) {
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	ctx := context.Background()
	shutdown, err := InitTracing(ctx, config.AppConfig{Name: "wiki", Version: "test"},
		config.TracingConfig{Endpoint: collector.URL, SampleRatio: 1}, zap.NewNop())
	require.NoError(t, err)

	_, span := otel.Tracer(TracerName).Start(ctx, "moderation.Approve")
	span.End()
	require.NoError(t, shutdown(ctx))

	assert.GreaterOrEqual(t, exports.Load(), int32(1))
}

func TestExporterOptionsAcceptsHostPort(t *testing.T) {
	t.Parallel()

	assert.Len(t, exporterOptions(config.TracingConfig{Endpoint: "collector:4318", Insecure: true}), 2)
	assert.Len(t, exporterOptions(config.TracingConfig{Endpoint: "collector:4318"}), 1)
	assert.Len(t, exporterOptions(config.TracingConfig{Endpoint: "https://collector:4318"}), 1)
}

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/chin3/hat-manager/config"
	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/chin3/hat-manager/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

// saveAndRestoreGlobalProviders 在测试结束时恢复全局 Provider
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	cfg := config.DefaultTelemetryConfig()
	cfg.Enabled = true
	cfg.ServiceName = "hatflow-test"
	cfg.SampleRate = 0.5

	p, err := Init(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestProviders_Shutdown_Nil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enabled())
}

// 生成调用产生的 span 会带上 Hat 属性并被导出
func TestGenerationSpansExported(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	exporter := tracetest.NewInMemoryExporter()
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "hatflow-test", SampleRate: 1}
	p, err := newProviders(cfg, exporter, sdkmetric.NewManualReader())
	require.NoError(t, err)
	p.install()
	defer p.Shutdown(context.Background())

	researcher := hat.New("Researcher", hat.RoleResearcher, "Find facts.")
	researcher.ID = "hat_researcher"

	provider := mocks.NewMockProvider().WithResponse("three facts")
	gen := teamflow.NewGenerator(provider, hat.NewMemoryStore(researcher), nil,
		teamflow.DefaultGeneratorConfig(), nil, zaptest.NewLogger(t))

	_, err = gen.Generate(context.Background(), "research otters", researcher)
	require.NoError(t, err)
	require.NoError(t, p.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "teamflow.generate", spans[0].Name)

	var hatID string
	for _, kv := range spans[0].Attributes {
		if kv.Key == "hat.id" {
			hatID = kv.Value.AsString()
		}
	}
	assert.Equal(t, "hat_researcher", hatID)
	assert.Equal(t, "hatflow-test", serviceName(spans[0]))
}

func serviceName(s tracetest.SpanStub) string {
	for _, kv := range s.Resource.Attributes() {
		if kv.Key == "service.name" {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "dev", buildVersion())
}

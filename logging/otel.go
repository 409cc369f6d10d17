package logging

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	serviceName         = "swiftkernel"
	instrumentationName = "github.com/coder/swiftkernel"
)

// newOTLPHandler exports records at or above level to an OTLP/HTTP collector
// at endpoint, e.g. http://localhost:4318.
func newOTLPHandler(ctx context.Context, endpoint string, level slog.Leveler) (slog.Handler, ShutdownFunc, error) {
	exporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, nil, err
	}

	provider := newLoggerProvider(sdklog.NewBatchProcessor(exporter))
	return newOTelHandler(provider, level), provider.Shutdown, nil
}

func newLoggerProvider(processor sdklog.Processor) *sdklog.LoggerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.Int("process.pid", os.Getpid()),
	)
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
}

func newOTelHandler(provider *sdklog.LoggerProvider, level slog.Leveler) slog.Handler {
	return &levelHandler{
		Handler: otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)),
		level:   level,
	}
}

// levelHandler drops records below level before they reach Handler.
type levelHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

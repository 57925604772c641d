// Package logging builds the service's zap logger.
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ScopeName is the instrumentation scope for records exported over OTLP.
const ScopeName = "github.com/jwenger100/event-tickets-reservations"

// New returns a JSON logger writing to stdout at level. When provider is not
// nil every record is also sent through it.
func New(level string, provider log.LoggerProvider) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		lvl,
	)

	if provider != nil {
		otelCore := otelzap.NewCore(ScopeName, otelzap.WithLoggerProvider(provider))
		core = zapcore.NewTee(core, otelCore)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

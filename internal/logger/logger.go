package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry as the "service" field.
const ServiceName = "kidney-story"

// New creates the process logger writing to stdout. Production emits JSON
// at info level; other environments use the colored console encoder at
// debug. A non-empty level ("debug", "info", "warn", "error") overrides
// the environment default.
func New(env, level string) (*zap.Logger, error) {
	return build(env, level, zapcore.Lock(os.Stdout))
}

func build(env, level string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	production := env == "production"

	var encoderConfig zapcore.EncoderConfig
	if production {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	threshold := zapcore.DebugLevel
	if production {
		threshold = zapcore.InfoLevel
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		threshold = parsed
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	if production {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(threshold))
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(zap.String("service", ServiceName), zap.String("env", env)),
	), nil
}

// Package logger provides the kit's logging interface on top of zap.
//
// It offers configurable log levels, encoding formats (JSON/Console), and
// output paths. There is no package-level global: every component receives
// its Logger through its constructor, so tests and embedding applications
// can build isolated instances with their own levels and outputs.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	// With returns a child logger that stamps the given fields on every entry
	With(fields ...zap.Field) Logger
	Sync() error
}

// zapLogger adapts *zap.Logger to the Logger interface
type zapLogger struct {
	zl *zap.Logger
}

// New creates a new logger with the given configuration.
// A nil configuration means defaults; a partial configuration has its
// empty fields filled from defaults before validation.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, ErrInvalidLevel(cfg.Level)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Encoding == "console",
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	zl, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, ErrBuild(err)
	}
	return &zapLogger{zl: zl}, nil
}

// NewNop returns a logger that discards everything. Intended for tests and
// for callers that want to silence a component entirely.
func NewNop() Logger {
	return &zapLogger{zl: zap.NewNop()}
}

// Zap returns the underlying *zap.Logger for libraries that take zap
// directly. A Logger not built by this package yields a no-op logger.
func Zap(l Logger) *zap.Logger {
	if zl, ok := l.(*zapLogger); ok {
		return zl.zl
	}
	return zap.NewNop()
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{zl: l.zl.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

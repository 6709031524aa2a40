package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract used across the service.
type Logger interface {
	Debug(msg string, fields ...zapcore.Field)
	Info(msg string, fields ...zapcore.Field)
	Warn(msg string, fields ...zapcore.Field)
	Error(msg string, fields ...zapcore.Field)
}

var (
	_ Logger = &loggerImpl{}
	_ Logger = &NoOpLogger{}
)

type loggerImpl struct {
	zapLogger *zap.Logger
}

// NewLogger creates a zap-backed logger. In production mode it writes
// JSON to the given file (stdout when empty); otherwise it uses the zap
// development config.
func NewLogger(isProduction bool, logFileName string, logLevel string) (Logger, error) {
	var config zap.Config
	if isProduction {
		config = zap.NewProductionConfig()
		if logFileName != "" {
			config.OutputPaths = []string{logFileName}
			config.ErrorOutputPaths = []string{logFileName}
		}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	if logLevel != "" {
		level, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &loggerImpl{
		zapLogger: zapLogger,
	}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...zapcore.Field) {
	l.zapLogger.Debug(msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...zapcore.Field) {
	l.zapLogger.Info(msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...zapcore.Field) {
	l.zapLogger.Warn(msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...zapcore.Field) {
	l.zapLogger.Error(msg, fields...)
}

// NoOpLogger discards everything. Used in tests.
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, fields ...zapcore.Field) {}

func (l *NoOpLogger) Info(msg string, fields ...zapcore.Field) {}

func (l *NoOpLogger) Warn(msg string, fields ...zapcore.Field) {}

func (l *NoOpLogger) Error(msg string, fields ...zapcore.Field) {}

package logger

import (
	"github.com/celer-network/eth-batch-sender/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	*zap.SugaredLogger
}

var _ types.Logger = (*ZapLogger)(nil)

// NewZapLogger creates a wrapped zap logger
func NewZapLogger(logger *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{
		SugaredLogger: logger,
	}
}

// New builds a console logger at the given level. When logFile is set every
// entry is also appended to that file.
func New(level string, logFile string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	outputs := []string{"stderr"}
	if logFile != "" {
		outputs = append(outputs, logFile)
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "could not build zap logger")
	}
	return NewZapLogger(logger.Sugar()), nil
}

// With returns a child logger carrying the given fields
func (zl *ZapLogger) With(keysAndValues ...interface{}) types.Logger {
	return NewZapLogger(zl.SugaredLogger.With(keysAndValues...))
}

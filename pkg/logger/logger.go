package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the development style logger used by the command line tools.
// Debug enables page and record level tracing from the reader.
func New(debug bool) (*zap.Logger, error) {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	lc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		lc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return lc.Build()
}

// Nop returns a logger that discards everything, used when the caller does not supply one.
func Nop() *zap.Logger {
	return zap.NewNop()
}

package log

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// NewNopLogger returns a logger that discards all messages.
func NewNopLogger() Logger {
	return loggerFromZapCore(zapcore.NewNopCore())
}

// NewServiceLogger creates a logger writing JSON lines to the writer.
// Debug messages are logged only if the debug flag is set.
func NewServiceLogger(w io.Writer, debug bool) Logger {
	level := InfoLevel
	if debug {
		level = DebugLevel
	}
	return loggerFromZapCore(zapcore.NewCore(newJSONEncoder(true), zapcore.AddSync(w), level))
}

func newJSONEncoder(withTime bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	if withTime {
		cfg.TimeKey = "time"
		cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}
	return zapcore.NewJSONEncoder(cfg)
}

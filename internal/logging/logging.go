// Package logging builds the zap logger that appends to the contact book
// log file, and the Tracer that records entry and exit of core calls.
package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/n3wscott/contactbook/internal/config"
)

// New opens cfg.LogPath for appending and returns a logger writing
// console-encoded entries at cfg.LogLevel. Call the returned close func on
// exit.
func New(cfg *config.Config) (*zap.Logger, func() error, error) {
	level, err := config.ToZapLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.LogPath(), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: opening %s: %w", cfg.LogPath(), err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("02.01.2006 15:04:05")

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(f), level)
	logger := zap.New(core)

	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

// Tracer logs the start and stop of an operation with its arguments and
// result. Callers wrap core calls with it; the core never logs traces on its
// own.
type Tracer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTracer returns a Tracer writing to logger. A nil logger discards.
func NewTracer(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger.Named("trace"), now: time.Now}
}

// Begin logs the start of op and returns the func that logs its end.
// Fields passed to the end func describe the result.
func (t *Tracer) Begin(op string, args ...zap.Field) func(err error, result ...zap.Field) {
	start := t.now()
	t.logger.Debug("start function", append([]zap.Field{zap.String("op", op)}, args...)...)

	return func(err error, result ...zap.Field) {
		fields := append([]zap.Field{
			zap.String("op", op),
			zap.Duration("elapsed", t.now().Sub(start)),
		}, result...)
		if err != nil {
			t.logger.Error("stop function", append(fields, zap.Error(err))...)
			return
		}
		t.logger.Debug("stop function", fields...)
	}
}

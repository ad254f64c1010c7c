package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eqt-market-sim/internal/config"
)

// New builds a JSON zap logger writing to stdout and, when cfg.File is set,
// to a size-rotated log file.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	return build(cfg, true)
}

// NewFileOnly is New without the stdout sink, for processes that own the
// terminal. It returns a no-op logger when cfg.File is empty.
func NewFileOnly(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.File == "" {
		if _, err := zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		return zap.NewNop(), nil
	}
	return build(cfg, false)
}

func build(cfg config.LoggingConfig, stdout bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "time"
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sinks []zapcore.WriteSyncer
	if stdout {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller()), nil
}

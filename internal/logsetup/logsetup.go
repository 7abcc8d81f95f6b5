// Package logsetup builds the zap.Logger every connection and the
// supervisor log through, wiring lumberjack's rotating file sink when a
// log file path is configured, the same pairing pkg/logutil's own tests
// exercise (zapcore.Entry fed through a lumberjack.Logger WriteSyncer).
package logsetup

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/memsqld/memsqld/internal/config"
)

// New builds a zap.Logger at the configured level, writing JSON lines to
// LogFilename (rotated via lumberjack) if set, otherwise to stderr in
// console form.
func New(cfg config.Parameters) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.Set(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	if cfg.LogFilename == "" {
		return zap.NewDevelopment(zap.IncreaseLevel(level))
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilename,
		MaxSize:    int(maxOr(cfg.LogMaxSize, 100)),
		MaxAge:     int(cfg.LogMaxDays),
		MaxBackups: int(cfg.LogMaxBackups),
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level)
	return zap.New(core, zap.AddCaller()), nil
}

func maxOr(v, fallback int64) int64 {
	if v <= 0 {
		return fallback
	}
	return v
}

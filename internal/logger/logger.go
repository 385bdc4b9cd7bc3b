package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	Level       string
	Environment string
	ServiceName string
}

var log = zap.NewNop()

// Init builds the process-wide logger. Production gets JSON with ISO8601
// timestamps; everything else gets the human-friendly development encoder.
func Init(config Config) error {
	var level zapcore.Level
	switch config.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	fields := zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	)

	var err error
	if config.Environment == "production" {
		prodConfig := zap.NewProductionConfig()
		prodConfig.Level = zap.NewAtomicLevelAt(level)
		prodConfig.EncoderConfig.TimeKey = "timestamp"
		prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		log, err = prodConfig.Build(fields)
	} else {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(level)
		devConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err = devConfig.Build(fields)
	}
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(log)
	return nil
}

// Get returns the process-wide logger instance.
func Get() *zap.Logger {
	return log
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = log.Sync()
}

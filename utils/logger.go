package utils

import (
	"log"
	"strings"
	"sync"

	"broadway/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger; request handlers get a child of it with request fields.
var Logger *zap.Logger

var loggerOnce sync.Once

// InitializeLogger builds a JSON logger in production and a colored console logger otherwise.
func InitializeLogger() {
	loggerOnce.Do(func() {
		var cfg zap.Config
		if config.IsProduction() {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(config.AppConfig.LogLevel, config.IsProduction()))
		cfg.InitialFields = map[string]interface{}{"service": "broadway"}

		built, err := cfg.Build()
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		Logger = built
		zap.ReplaceGlobals(Logger)
	})
}

// parseLevel falls back to info in production and debug elsewhere when raw is empty or unknown.
func parseLevel(raw string, production bool) zapcore.Level {
	if raw = strings.TrimSpace(raw); raw != "" {
		if level, err := zapcore.ParseLevel(raw); err == nil {
			return level
		}
	}
	if production {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func GetLogger() *zap.Logger {
	InitializeLogger()
	return Logger
}

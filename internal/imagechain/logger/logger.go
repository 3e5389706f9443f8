package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
)

// LogConfig controls the global logger built by InitLogger.
type LogConfig struct {
	Level       string
	Development bool
	// Optional file sinks; stderr is always used when both are empty.
	DebugFile string
	InfoFile  string
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes the global sugared logger.
func InitLogger(lc LogConfig) error {
	var cfg zap.Config
	if lc.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(lc.Level))

	outputs := []string{"stderr"}
	if lc.DebugFile != "" {
		outputs = append(outputs, lc.DebugFile)
	}
	if lc.InfoFile != "" {
		outputs = append(outputs, lc.InfoFile)
	}
	cfg.OutputPaths = outputs

	z, err := cfg.Build()
	if err != nil {
		return err
	}

	logger = z.Sugar()
	return nil
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level.
func L() *zap.SugaredLogger {
	if logger == nil {
		_ = InitLogger(LogConfig{Level: "info"})
	}
	return logger
}

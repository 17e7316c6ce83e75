package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/phantompool/darkpool/internal/config"
)

// Log is the global logger instance.
var Log = logrus.New()

// Init configures the global logger from the node configuration.
func Init(cfg config.LoggerConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	Log.SetLevel(level)

	switch cfg.Format {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.FilePath != "" {
		lumberjackLogger := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		// Log to both file and stdout.
		Log.SetOutput(io.MultiWriter(os.Stdout, lumberjackLogger))
	} else {
		Log.SetOutput(os.Stdout)
	}

	return nil
}

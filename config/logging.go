package config

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogWriter returns the destination for application and access logs.
// File output rotates through lumberjack.
func (c LoggingConfig) LogWriter() io.Writer {
	if c.Output == "stdout" || c.FilePath == "" {
		return os.Stdout
	}
	rotating := &lumberjack.Logger{
		Filename:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
	if c.Output == "both" {
		return io.MultiWriter(os.Stdout, rotating)
	}
	return rotating
}

package main

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger returns a logger configured by config and a function to close
// it. Logs go to a rotated file if config.File is set, otherwise to stderr.
func newLogger(config LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	w := stderr
	closeFunc := func() error { return nil }
	if config.File != "" {
		rotatingFile := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
		}
		w = rotatingFile
		closeFunc = rotatingFile.Close
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFunc, nil
}

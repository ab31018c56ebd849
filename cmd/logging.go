package cmd

import (
	"io"

	"github.com/restcue/restcue/internal/config"
	"github.com/restcue/restcue/pkg/logger"
)

// daemonLogger fans out to the console and, when configured, a JSON log
// file. Its level follows config reloads.
type daemonLogger struct {
	*logger.MultiLogger
}

// newDaemonLogger writes console lines to w. The native host passes
// stderr because stdout carries the protocol.
func newDaemonLogger(w io.Writer, cfg config.LogConfig) (*daemonLogger, error) {
	backends := []logger.Logger{logger.NewConsoleLogger(w, cfg.Level)}
	if cfg.File != "" {
		file, err := logger.OpenFileLogger(cfg.File, cfg.Level)
		if err != nil {
			return nil, err
		}
		backends = append(backends, file)
	}
	return &daemonLogger{MultiLogger: logger.NewMultiLogger(backends...)}, nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// setupLog configures the global logger. With VOICEBOX_LOGFILE or DEBUG
// set it logs to a file; otherwise logging is discarded so it never
// bleeds into the TUI.
func setupLog() (func() error, error) {
	logFile := os.Getenv("VOICEBOX_LOGFILE")
	if logFile == "" && os.Getenv("DEBUG") == "" {
		log.SetOutput(io.Discard)
		return func() error { return nil }, nil
	}

	if logFile == "" {
		scope := gap.NewScope(gap.User, "voicebox")
		path, err := scope.LogPath("voicebox.log")
		if err != nil {
			return nil, fmt.Errorf("unable to determine log path: %w", err)
		}
		logFile = path
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetTimeFormat(time.Kitchen)
	log.SetReportCaller(true)
	return f.Close, nil
}

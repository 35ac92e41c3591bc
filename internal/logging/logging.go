// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures structured logging for faqchat.
//
// The TUI owns the terminal, so interactive runs log to a file in the
// config directory. Line-mode commands may log to stderr instead.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/faqchat/internal/config"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a zerolog level name; unknown values fall back to info
	Level string
	// Path of the log file; empty uses <config dir>/faqchat.log
	Path string
	// Stderr sends human-readable output to stderr instead of a file
	Stderr bool
}

// ParseLevel converts a string level into zerolog.Level with a safe default.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger for opts. The returned closer releases the log file and
// is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)

	if opts.Stderr {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if level == zerolog.Disabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	path := opts.Path
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		dir, err := config.ConfigDir()
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		path = filepath.Join(dir, "faqchat.log")
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), nopCloser{}, errors.Wrap(err, "create log directory")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, errors.Wrapf(err, "open log file %s", path)
	}

	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

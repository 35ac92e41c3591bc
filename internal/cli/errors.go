// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/jeranaias/faqchat/internal/config"
	"github.com/jeranaias/faqchat/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitTimeoutError = 8
)

// reportedError marks an error whose message was already printed, so
// Execute only has to set the exit status.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr config.ValidateErrors
	if errors.As(err, &verr) {
		return ExitConfigError
	}

	switch {
	case transport.IsTimeout(err):
		return ExitTimeoutError
	case transport.IsNetwork(err), transport.IsAPI(err):
		return ExitNetworkError
	}

	var usage *usageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	return ExitGeneralError
}

// usageError is returned for bad arguments.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

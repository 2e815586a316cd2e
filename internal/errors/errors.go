// Package errors provides error handling for reval.
//
// It re-exports github.com/cockroachdb/errors so callers get stack traces,
// wrapping, and user-facing hints and details from a single import:
//
//	if err := plugin.Execute(ctx, id, editor); err != nil {
//	    return errors.Wrap(err, "reload failed")
//	}
//
//	return errors.WithHint(ErrNoActiveFile, "Please save the file before using reval.")
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors shared across packages. Wrap them to add context while
// keeping errors.Is checks working.
var (
	// ErrNoActiveFile means the command has no saved file path to work on.
	ErrNoActiveFile = New("no active file path")

	// ErrUnknownCommand means a command id is not registered.
	ErrUnknownCommand = New("unknown command")

	// ErrStopped means the plugin was stopped and its commands released.
	ErrStopped = New("plugin stopped")
)

// IsNoActiveFile reports whether err is or wraps ErrNoActiveFile.
func IsNoActiveFile(err error) bool {
	return err != nil && Is(err, ErrNoActiveFile)
}

// UserMessage joins the hints on err into a single line, falling back to
// the error text when there are none.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if hint := FlattenHints(err); hint != "" {
		return hint
	}
	return err.Error()
}

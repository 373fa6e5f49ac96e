package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goliatone/go-metacache/repositorycache"
)

// Exit codes for metactl.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // store or cache failure
	ExitUsage    = 2 // bad flags, config or input
	ExitNotFound = 3
)

// ExitError carries the exit code a command failure maps to.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps err to a process exit code. Repository error classes are
// recognised even when they are not wrapped in an ExitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case repositorycache.ErrNotFound.Has(err):
		return ExitNotFound
	case repositorycache.ErrInvalid.Has(err):
		return ExitUsage
	}
	return ExitFailure
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

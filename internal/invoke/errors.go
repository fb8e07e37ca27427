package invoke

import (
	"errors"
	"fmt"
)

// Exit statuses of the calculator contract. The fz framework reads the
// process exit status to classify a run: 0 success, 2 usage error, anything
// else a failed calculation.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// UsageError: the path argument is neither an existing regular file nor a
// directory. Reported before any side effect.
type UsageError struct {
	Arg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s is neither an input file nor a directory", e.Arg)
}

// InputNotFoundError: a directory was supplied but holds no *.inp file.
type InputNotFoundError struct {
	Dir string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("no .inp input file found in %s", e.Dir)
}

// BackendFailureError: the backend ran and exited non-zero. The backend's
// own code becomes the invoker's exit status.
type BackendFailureError struct {
	ExitCode int
	LogPath  string
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("serpent exited with code %d (log: %s)", e.ExitCode, e.LogPath)
}

// ExitStatus maps an invocation error to the process exit status.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	var failure *BackendFailureError
	if errors.As(err, &failure) && failure.ExitCode != 0 {
		return failure.ExitCode
	}
	return ExitError
}

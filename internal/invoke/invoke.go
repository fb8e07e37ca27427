// Package invoke runs one Serpent calculation: resolve the input deck, mark
// the working directory with a PID file, pick a backend, execute it with
// combined output captured to serpent.out, and surface the exit status the
// fz framework keys on.
package invoke

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fzserpent/internal/backend"
	"fzserpent/internal/core"
	"fzserpent/internal/runner"
)

// LogFileName is the combined stdout/stderr capture of the backend,
// truncate-created in the working directory on every run.
const LogFileName = "serpent.out"

const inputPattern = "*.inp"

// Request is the caller-supplied invocation. ExtraArgs follow the fz
// calculator convention; they are recorded but not passed to the backend.
type Request struct {
	Path      string
	ExtraArgs []string
}

// ResolvedInput is derived once from the request. InputFile is the argument
// handed to the backend, relative to WorkDir when the request named a
// directory.
type ResolvedInput struct {
	InputFile string
	BaseName  string
	WorkDir   string
}

// InvocationStore is the optional run-history sink.
type InvocationStore interface {
	CreateInvocation(ctx context.Context, rec core.InvocationRecord) error
	FinishInvocation(ctx context.Context, invocationID string, status string, exitCode int, resultFile string, durationMs int64) error
}

type Invoker struct {
	Runner   runner.Runner
	Backends *backend.Resolver
	Events   core.EventLogger
	Store    InvocationStore
	Stdout   io.Writer
	Stderr   io.Writer
	// PID overrides os.Getpid() in tests.
	PID int
}

// ResolveInput applies the input policy: a directory means "first *.inp in
// it" with the directory as working directory, a regular file is used as
// given with the caller's directory as working directory. Anything else is
// a usage error.
func ResolveInput(pathArg string) (ResolvedInput, error) {
	info, err := os.Stat(pathArg)
	if err != nil {
		return ResolvedInput{}, &UsageError{Arg: pathArg}
	}

	if info.IsDir() {
		// Glob returns sorted names, so the first match is the same file
		// every run for unchanged directory contents. Non-recursive.
		matches, err := filepath.Glob(filepath.Join(pathArg, inputPattern))
		if err != nil {
			return ResolvedInput{}, fmt.Errorf("search %s: %w", pathArg, err)
		}
		if len(matches) == 0 {
			return ResolvedInput{}, &InputNotFoundError{Dir: pathArg}
		}
		name := filepath.Base(matches[0])
		return ResolvedInput{
			InputFile: name,
			BaseName:  strings.TrimSuffix(name, filepath.Ext(name)),
			WorkDir:   pathArg,
		}, nil
	}

	if !info.Mode().IsRegular() {
		return ResolvedInput{}, &UsageError{Arg: pathArg}
	}

	name := filepath.Base(pathArg)
	return ResolvedInput{
		InputFile: pathArg,
		BaseName:  strings.TrimSuffix(name, filepath.Ext(name)),
		WorkDir:   ".",
	}, nil
}

// Run drives one invocation to completion. The returned error carries the
// exit status via ExitStatus; a nil error means the backend succeeded.
func (inv *Invoker) Run(ctx context.Context, req Request) error {
	resolved, err := ResolveInput(req.Path)
	if err != nil {
		return err
	}

	// The orchestrator polls for the PID file to detect a started
	// invocation, so the marker goes down before backend probing. Every
	// path past this point releases it.
	marker, err := writePIDMarker(resolved.WorkDir, inv.pid())
	if err != nil {
		return err
	}
	defer marker.Release()

	invocationID, err := core.NewInvocationID()
	if err != nil {
		return err
	}

	inv.emit(invocationID, "info", "input_resolved", map[string]string{
		"input_file": resolved.InputFile,
		"work_dir":   resolved.WorkDir,
	})

	backendCmd, err := inv.Backends.Resolve()
	if err != nil {
		return fmt.Errorf("resolve backend: %w", err)
	}
	inv.emit(invocationID, "info", "backend_resolved", map[string]string{
		"backend": backendCmd,
	})

	logPath := filepath.Join(resolved.WorkDir, LogFileName)
	started := time.Now()
	inv.storeCreate(ctx, core.InvocationRecord{
		InvocationID: invocationID,
		InputFile:    resolved.InputFile,
		WorkDir:      resolved.WorkDir,
		Backend:      backendCmd,
		ExtraArgs:    req.ExtraArgs,
		Status:       core.InvocationRunning,
		LogPath:      logPath,
		StartedAt:    started,
	})

	// Single blocking child process. No timeout here: Monte Carlo runs are
	// expected to take arbitrarily long, cancellation is external.
	result, err := inv.Runner.Run(ctx, runner.Command{
		Args:         []string{backendCmd, resolved.InputFile},
		Cwd:          resolved.WorkDir,
		AllowNonZero: true,
		CombinedPath: logPath,
	})
	if err != nil {
		inv.storeFinish(ctx, invocationID, core.InvocationFailed, ExitError, "", time.Since(started))
		inv.emit(invocationID, "error", "invocation_failed", map[string]string{"error": err.Error()})
		return fmt.Errorf("run backend: %w", err)
	}

	resultFile := inv.resultFile(resolved)

	if result.ExitCode != 0 {
		fmt.Fprintf(inv.stderr(), "serpent exited with code %d\n", result.ExitCode)
		inv.echoLog(logPath)
		inv.storeFinish(ctx, invocationID, core.InvocationFailed, result.ExitCode, resultFile, time.Since(started))
		inv.emit(invocationID, "error", "backend_finished", map[string]int{"exit_code": result.ExitCode})
		return &BackendFailureError{ExitCode: result.ExitCode, LogPath: logPath}
	}

	fmt.Fprintf(inv.stdout(), "serpent run finished, output in %s\n", logPath)
	inv.storeFinish(ctx, invocationID, core.InvocationSucceeded, 0, resultFile, time.Since(started))
	inv.emit(invocationID, "info", "invocation_finished", map[string]string{
		"log_path":    logPath,
		"result_file": resultFile,
	})
	return nil
}

// resultFile reports the <basename>_res.m path when the backend produced
// one. The file is only located, never parsed; harvesting belongs to the
// framework's result parser.
func (inv *Invoker) resultFile(resolved ResolvedInput) string {
	path := filepath.Join(resolved.WorkDir, resolved.BaseName+"_res.m")
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return path
}

// echoLog copies the captured backend output to the invoker's own stdout so
// the framework's log aggregator sees the failure detail inline.
func (inv *Invoker) echoLog(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_, _ = inv.stdout().Write(data)
}

func (inv *Invoker) emit(invocationID string, level string, eventType string, payload interface{}) {
	if inv.Events == nil {
		return
	}
	// A broken event trail never changes the invocation outcome.
	_ = inv.Events.Emit(core.Event{
		InvocationID: invocationID,
		Level:        level,
		EventType:    eventType,
		Payload:      payload,
	})
}

func (inv *Invoker) storeCreate(ctx context.Context, rec core.InvocationRecord) {
	if inv.Store == nil {
		return
	}
	if err := inv.Store.CreateInvocation(ctx, rec); err != nil {
		fmt.Fprintf(inv.stderr(), "history: record invocation: %v\n", err)
	}
}

func (inv *Invoker) storeFinish(ctx context.Context, invocationID string, status string, exitCode int, resultFile string, elapsed time.Duration) {
	if inv.Store == nil {
		return
	}
	if err := inv.Store.FinishInvocation(ctx, invocationID, status, exitCode, resultFile, elapsed.Milliseconds()); err != nil {
		fmt.Fprintf(inv.stderr(), "history: finish invocation: %v\n", err)
	}
}

func (inv *Invoker) pid() int {
	if inv.PID != 0 {
		return inv.PID
	}
	return os.Getpid()
}

func (inv *Invoker) stdout() io.Writer {
	if inv.Stdout != nil {
		return inv.Stdout
	}
	return os.Stdout
}

func (inv *Invoker) stderr() io.Writer {
	if inv.Stderr != nil {
		return inv.Stderr
	}
	return os.Stderr
}

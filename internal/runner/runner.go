package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Command describes a single external process execution. CombinedPath, when
// set, receives stdout and stderr interleaved; the file is truncate-created
// so a rerun never keeps stale output.
type Command struct {
	Args         []string
	Env          map[string]string
	Cwd          string
	AllowNonZero bool
	CombinedPath string
}

type ExecResult struct {
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMs int64
}

type Runner interface {
	Run(ctx context.Context, cmd Command) (ExecResult, error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (ExecResult, error) {
	if len(cmd.Args) == 0 {
		return ExecResult{}, fmt.Errorf("command args required")
	}

	start := time.Now()
	execCmd := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	if cmd.Cwd != "" {
		execCmd.Dir = cmd.Cwd
	}

	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), envSlice(cmd.Env)...)
	}

	if cmd.CombinedPath != "" {
		combined, err := os.Create(cmd.CombinedPath)
		if err != nil {
			return ExecResult{}, fmt.Errorf("create combined log: %w", err)
		}
		defer combined.Close()
		execCmd.Stdout = combined
		execCmd.Stderr = combined
	}

	err := execCmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ExecResult{}, fmt.Errorf("start %s: %w", cmd.Args[0], err)
		}
		exitCode = exitErr.ExitCode()
		if !cmd.AllowNonZero {
			return ExecResult{}, fmt.Errorf("command failed: %w", err)
		}
	}

	finished := time.Now()
	return ExecResult{
		ExitCode:   exitCode,
		StartedAt:  start,
		FinishedAt: finished,
		DurationMs: finished.Sub(start).Milliseconds(),
	}, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for key, value := range env {
		out = append(out, fmt.Sprintf("%s=%s", key, value))
	}
	return out
}

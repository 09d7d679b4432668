package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ToolResult is the captured outcome of one external tool invocation.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner launches external tools and captures their output. A non-zero exit is
// reported through ToolResult.ExitCode, not the error — the error is reserved
// for failures to launch or wait on the process at all. Callers decide what an
// exit code means; this keeps process spawning separate from output parsing
// and lets tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (ToolResult, error)
}

type execRunner struct{}

// NewRunner returns the exec-backed Runner used in production.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (ToolResult, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return result, fmt.Errorf("failed to run %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}

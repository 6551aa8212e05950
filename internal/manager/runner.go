package manager

import (
	"context"
	"os/exec"
)

// Runner abstracts "run this executable and capture its output" so the
// resolution policy can be tested without spawning real processes. The
// version-query subprocess is the system's only trust mechanism.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, path string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, path, args...).Output()
}

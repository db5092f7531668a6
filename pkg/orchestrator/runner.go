package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/chimerahq/chimera/pkg/api"
)

// Runner executes an external command and returns its combined stdout,
// or a ContainerError carrying the failed command line and stderr.
// Substituted with a fake in tests so ServeAll never shells out to a real
// docker binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec, matching the teacher's
// exec.CommandContext-with-a-capturing-buffer idiom
// (pkg/health/exec.go, pkg/network/hostports.go's runIPTables).
type ExecRunner struct{}

// Run executes name with args and returns its stdout. On failure it
// returns a ContainerError carrying the command line and captured stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, api.NewContainerError(fmt.Sprintf(
			"%s %v failed: %v (stderr: %s)", name, args, err, stderr.String(),
		))
	}
	return stdout.Bytes(), nil
}

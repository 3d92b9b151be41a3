package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spec-kit/vps-service/pkg/util"
)

// Runner executes a host command and returns its stdout. Implementations map
// deadline expiry to RUNTIME_TIMEOUT and non-zero exits to
// RUNTIME_COMMAND_FAILED carrying the tool's stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", util.NewRuntimeTimeout(fmt.Sprintf("%s %s timed out", name, strings.Join(args, " ")))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", util.NewRuntimeCommandFailed(msg, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

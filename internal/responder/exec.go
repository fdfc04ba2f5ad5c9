package responder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Exec runs a local command per round. The input arrives on stdin and in
// PARLEY_INPUT, the history in PARLEY_HISTORY; trimmed stdout is the reply.
type Exec struct {
	argv    []string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewExec splits command with shell quoting rules and appends args.
func NewExec(command string, args []string, timeout time.Duration, logger *logrus.Logger) (*Exec, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse responder.command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("no responder.command configured")
	}
	argv = append(argv, args...)
	return &Exec{argv: argv, timeout: timeout, logger: logger}, nil
}

// Argv returns the resolved command line.
func (e *Exec) Argv() []string { return append([]string{}, e.argv...) }

func (e *Exec) Respond(ctx context.Context, history, input string) (string, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, e.argv[0], e.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"PARLEY_HISTORY="+history,
		"PARLEY_INPUT="+input,
	)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		e.logger.Debugf("responder stderr: %s", msg)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("responder command failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("responder command failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Package command runs external tools (pdftotext, pdftoppm, tesseract, the
// split script, the oracle CLI) behind an interface that tests can stub.
package command

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Runner executes a command, feeding stdin when non-nil.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error)

func (f RunnerFunc) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, stdin, name, args...)
}

// Exec runs commands with os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		zap.L().Debug("command: exec failed",
			zap.String("cmd", name),
			zap.String("args", Truncate(strings.Join(args, " "), 512)),
			zap.Int64("duration_ms", dur.Milliseconds()),
			zap.String("stderr", Truncate(errb.String(), 8<<10)),
			zap.Error(err),
		)
		return out.Bytes(), errb.Bytes(), eris.Wrapf(err, "command: %s", name)
	}

	zap.L().Debug("command: exec ok",
		zap.String("cmd", name),
		zap.Int64("duration_ms", dur.Milliseconds()),
		zap.Int("stdout_bytes", out.Len()),
		zap.Int("stderr_bytes", errb.Len()),
	)
	return out.Bytes(), errb.Bytes(), nil
}

// Truncate caps s at max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

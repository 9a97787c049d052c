package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"stosh/internal/errs"
)

// Invocation describes one run of the external build tool.
type Invocation struct {
	Tool string
	Args []string
	Dir  string
	Env  map[string]string // additional env vars
}

// Command returns the invocation as it would be typed: tool followed by args.
func (inv Invocation) Command() []string {
	return append([]string{inv.Tool}, inv.Args...)
}

// Result is the captured outcome of a build tool run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes build tool invocations. A non-zero exit status is reported
// in Result, not as an error; errors are reserved for failing to run at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs the build tool as a child process via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	path, err := exec.LookPath(inv.Tool)
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrToolNotFound, err,
			inv.Tool+" command not found; ensure it is installed and in PATH")
	}
	cmd := exec.CommandContext(ctx, path, inv.Args...)
	cmd.Dir = inv.Dir
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range inv.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return res, errs.Wrap(errs.ErrToolNotFound, err, inv.Tool+" command not found")
	}
	return res, &errs.Error{
		Kind: errs.ErrBuildFailed,
		Msg:  "could not run build tool",
		Err:  err,
		Build: &errs.BuildOutput{
			Command: inv.Command(),
			Dir:     inv.Dir,
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
		},
	}
}

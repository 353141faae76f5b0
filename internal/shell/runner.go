// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/relgate/relgate/pkg/types"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrCommandFailed is the sentinel wrapped by CommandError.
var ErrCommandFailed = errors.New("command failed")

type (
	// Command is one script invocation.
	Command struct {
		// Name labels the command in logs and errors.
		Name   string
		Script string
		Dir    string
		// Env is layered over the runner's base environment.
		Env  map[string]string
		Args []string
	}

	// Result is the outcome of a command.
	Result struct {
		ExitCode  types.ExitCode
		Output    string
		ErrOutput string
		// Error is set for failures that are not a plain non-zero exit.
		Error error
	}

	// CommandError reports a command that exited non-zero.
	CommandError struct {
		Name     string
		ExitCode types.ExitCode
		Stderr   string
	}

	// Runner executes commands with the virtual shell.
	Runner struct {
		baseEnv []string
		stdout  io.Writer
		stderr  io.Writer
		logger  *log.Logger
	}

	// Option configures a Runner.
	Option func(*Runner)
)

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// WithBaseEnv replaces the inherited process environment.
func WithBaseEnv(env []string) Option {
	return func(r *Runner) { r.baseEnv = slices.Clone(env) }
}

// WithOutput streams command output to the given writers in addition to
// capturing it.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner inheriting the process environment.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{baseEnv: os.Environ(), logger: log.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate parses the script without running it.
func Validate(script string) error {
	if strings.TrimSpace(script) == "" {
		return errors.New("script has no content to execute")
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(script), "script"); err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}
	return nil
}

// Run executes cmd and captures its output.
func (r *Runner) Run(ctx context.Context, cmd Command) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(cmd.Script), cmd.Name)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to parse script: %w", err)}
	}

	var stdout, stderr bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(r.environ(cmd.Env)...)),
		interp.StdIO(nil, r.tee(&stdout, r.stdout), r.tee(&stderr, r.stderr)),
	}
	if cmd.Dir != "" {
		opts = append(opts, interp.Dir(cmd.Dir))
	}
	// "--" keeps arguments like "-v" from being read as shell options.
	if len(cmd.Args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, cmd.Args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	r.logger.Debug("running command", "name", cmd.Name, "dir", cmd.Dir)
	result := &Result{}
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			result.ExitCode = types.ExitCode(exitStatus)
		} else {
			result.ExitCode = 1
			result.Error = fmt.Errorf("script execution failed: %w", err)
		}
	}
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

// Exec runs cmd and converts a failing result into an error.
func (r *Runner) Exec(ctx context.Context, cmd Command) error {
	res := r.Run(ctx, cmd)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", cmd.Name, res.Error)
	}
	if !res.ExitCode.IsSuccess() {
		return &CommandError{Name: cmd.Name, ExitCode: res.ExitCode, Stderr: res.ErrOutput}
	}
	return nil
}

func (r *Runner) environ(extra map[string]string) []string {
	env := slices.Clone(r.baseEnv)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func (r *Runner) tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

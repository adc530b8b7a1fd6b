package trainzutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"tzbuild/internal/kuid"
)

var (
	// ErrLaunch reports that the installer process could not be started at
	// all, e.g. the executable is missing or not runnable.
	ErrLaunch = errors.New("installer launch failed")
	// ErrExit reports that the installer ran and exited non-zero.
	ErrExit = errors.New("installer exited with failure")
)

// Result captures one installer invocation. Output is the combined
// stdout/stderr text, kept verbatim apart from trimming; the installer's
// output format is not part of any contract, so callers must not parse it.
type Result struct {
	Command  string
	Output   string
	ExitCode int
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps installer CLI interactions. All verbs classify strictly by
// exit status: zero is success, anything else is ErrExit with the captured
// text as diagnostic.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs an installer client. timeoutSeconds bounds each invocation;
// zero means no limit.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("installer binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured installer executable path.
func (c *Client) Binary() string {
	return c.binary
}

// Version asks the installer for its version and returns the first output
// line. Used as the preflight reachability probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(res.Output, "\n")
	return strings.TrimSpace(line), nil
}

// InstallFromPath installs the asset rooted at dir into the catalog.
func (c *Client) InstallFromPath(ctx context.Context, dir string) (Result, error) {
	return c.run(ctx, "installfrompath", dir)
}

// Commit commits the open asset with the given identity.
func (c *Client) Commit(ctx context.Context, id kuid.Identity) (Result, error) {
	return c.run(ctx, "commit", id.String())
}

// Validate runs the installer's validation over the given identity.
func (c *Client) Validate(ctx context.Context, id kuid.Identity) (Result, error) {
	return c.run(ctx, "validate", id.String())
}

// Delete removes the asset with the given identity from the catalog.
func (c *Client) Delete(ctx context.Context, id kuid.Identity) (Result, error) {
	return c.run(ctx, "delete", id.String())
}

func (c *Client) run(ctx context.Context, args ...string) (Result, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.exec.Run(runCtx, c.binary, args)
	res := Result{Command: args[0], Output: strings.TrimSpace(out)}
	if err == nil {
		return res, nil
	}

	// A cancelled context kills the subprocess, which then reports a bogus
	// exit failure; surface the interruption itself instead.
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%w: %s exited with code %d", ErrExit, args[0], res.ExitCode)
	}
	return res, fmt.Errorf("%w: %s: %v", ErrLaunch, args[0], err)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// Package claudecli is the gateway to the code-generating agent CLI. It
// performs one blocking subprocess invocation per generation request, bounded
// by a timeout, and returns the raw response text for the calling agent to
// parse. A mock client stands in for the real CLI in dry runs and tests.
package claudecli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/maidkit/ccmaid/internal/logging"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 300 * time.Second

// Response is the outcome of one generation request.
type Response struct {
	Success bool
	Text    string
	Error   string
	Elapsed time.Duration
}

// Client produces text from a prompt. Implementations block until the agent
// answers or the context/timeout expires.
type Client interface {
	Generate(ctx context.Context, prompt string) Response
}

// Options configures the CLI client.
type Options struct {
	// Command is the agent binary to invoke.
	Command string
	// Model selects the model, when non-empty.
	Model string
	// Timeout bounds each invocation.
	Timeout time.Duration
	// BypassPermissions passes the permission-bypass mode to the CLI so
	// unattended runs never stall on an approval prompt.
	BypassPermissions bool
}

// CLIClient shells out to the agent CLI.
type CLIClient struct {
	opts Options
	log  *logging.Logger
}

// NewCLIClient builds a CLIClient with defaults applied.
func NewCLIClient(opts Options, log *logging.Logger) *CLIClient {
	if opts.Command == "" {
		opts.Command = "claude"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &CLIClient{opts: opts, log: log}
}

// Generate invokes the CLI once with the prompt on stdin. A timeout produces
// a failed response whose error text matches the systemic timeout signature,
// so the workflow loop aborts instead of retrying a dead tool.
func (c *CLIClient) Generate(ctx context.Context, prompt string) Response {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	args := c.buildArgs()
	c.log.Debug("invoking agent CLI",
		"command", c.opts.Command, "model", c.opts.Model, "timeout", c.opts.Timeout)

	cmd := exec.CommandContext(ctx, c.opts.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return Response{
			Error:   fmt.Sprintf("agent CLI timed out after %s", c.opts.Timeout),
			Elapsed: elapsed,
		}
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Response{
			Error:   fmt.Sprintf("agent CLI failed: %s", detail),
			Elapsed: elapsed,
		}
	}

	text := stdout.String()
	c.log.Debug("agent CLI responded", "bytes", len(text), "elapsed", elapsed)
	return Response{Success: true, Text: text, Elapsed: elapsed}
}

func (c *CLIClient) buildArgs() []string {
	args := []string{"--print"}
	if c.opts.Model != "" {
		args = append(args, "--model", c.opts.Model)
	}
	if c.opts.BypassPermissions {
		args = append(args, "--permission-mode", "bypassPermissions")
	}
	return args
}

// MockClient returns canned responses without spawning anything. Responses
// are served in order; when they run out, the last one repeats.
type MockClient struct {
	Responses []Response
	Prompts   []string // records every prompt received
	next      int
}

// NewMockClient builds a MockClient serving the given responses. With no
// responses configured it answers every prompt with a generic success.
func NewMockClient(responses ...Response) *MockClient {
	return &MockClient{Responses: responses}
}

// Generate records the prompt and returns the next canned response.
func (m *MockClient) Generate(_ context.Context, prompt string) Response {
	m.Prompts = append(m.Prompts, prompt)
	if len(m.Responses) == 0 {
		return Response{Success: true, Text: "mock response"}
	}
	r := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return r
}

package execs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cernvm/litescript/pkg/log"
)

var (
	// ErrCommandExecution is returned when the tool fails to run or exits non-zero.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when no tool name is set.
	ErrEmptyCommand = errors.New("empty command")
)

const tracerName = "github.com/cernvm/litescript/pkg/execs"

// Result holds the captured output of a tool run.
type Result struct {
	Stdout string
	Stderr string
}

// Command is one external tool invocation.
type Command struct {
	baseEnv map[string]string

	// Name is the executable, looked up in PATH if it has no separator.
	Name    string
	Args    []string
	Env     []EnvVar
	EnvFrom []EnvFromSource
}

// NewCommand creates a new [Command]. The base environment is usually
// [os.Environ]; only [EssentialVars] and configured entries reach the tool.
func NewCommand(name string, baseEnv []string, args ...string) *Command {
	return &Command{
		baseEnv: ParseEnviron(baseEnv),
		Name:    name,
		Args:    args,
	}
}

// Run executes the command in dir and waits for it to finish. An empty dir
// runs it in the current working directory.
//
// On a non-zero exit the returned error wraps [ErrCommandExecution] and
// includes the tool's stderr; the partial [Result] is returned alongside it.
func (c *Command) Run(ctx context.Context, dir string) (*Result, error) {
	if c.Name == "" {
		return nil, ErrEmptyCommand
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", c.Name),
		attribute.String("dir", dir),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(slog.String("command", c.String()))

	env, err := BuildEnv(c.baseEnv, c.Env, c.EnvFrom)
	if err != nil {
		return nil, fmt.Errorf("build environment: %w", err)
	}

	//nolint:gosec // G204: Tool and arguments come from configuration.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = dir
	cmd.Env = env

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		if msg := strings.TrimSpace(result.Stderr); msg != "" {
			return result, fmt.Errorf("%w: %w: %s", ErrCommandExecution, err, msg)
		}

		return result, fmt.Errorf("%w: %w", ErrCommandExecution, err)
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}

	return c.Name + " " + strings.Join(c.Args, " ")
}

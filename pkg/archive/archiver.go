package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/execs"
	"github.com/cernvm/litescript/pkg/log"
)

const tracerName = "github.com/cernvm/litescript/pkg/archive"

// ErrBuild is returned when the archive could not be produced.
var ErrBuild = errors.New("build archive")

// Result describes a produced archive.
type Result struct {
	Path string
	Size int64
}

// Archiver runs the archive tool.
type Archiver struct {
	tracer  trace.Tracer
	environ []string
	cfg     Config
}

// ArchiverOpt configures an [Archiver].
type ArchiverOpt func(*Archiver)

// WithEnviron sets the caller environment the tool environment is built from.
// Defaults to [os.Environ].
func WithEnviron(environ []string) ArchiverOpt {
	return func(a *Archiver) {
		a.environ = environ
	}
}

// WithTracer sets the tracer used for archive spans.
func WithTracer(t trace.Tracer) ArchiverOpt {
	return func(a *Archiver) {
		a.tracer = t
	}
}

// NewArchiver creates a new [Archiver]. A nil config uses defaults.
//
// A relative base directory, and a relative tool path containing a
// separator, are resolved against the current working directory.
func NewArchiver(cfg *Config, opts ...ArchiverOpt) (*Archiver, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := *cfg
	c.EnsureDefaults()

	err := c.Validate()
	if err != nil {
		return nil, err
	}

	c.BaseDir, err = absPath(c.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: base dir: %w", ErrInvalidConfig, err)
	}

	if strings.ContainsRune(c.Tool, filepath.Separator) {
		c.Tool, err = absPath(c.Tool)
		if err != nil {
			return nil, fmt.Errorf("%w: tool: %w", ErrInvalidConfig, err)
		}
	}

	a := &Archiver{
		cfg:     c,
		environ: os.Environ(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Compression returns the configured compression.
func (a *Archiver) Compression() Compression {
	return a.cfg.Compression
}

// BaseDir returns the absolute directory the archive is rooted at.
func (a *Archiver) BaseDir() string {
	return a.cfg.BaseDir
}

// Args returns the tool arguments that write spec into archivePath.
func (a *Archiver) Args(spec compiler.ArchiveSpec, archivePath string) []string {
	args := []string{
		"-c" + a.cfg.Compression.Flag() + "f", archivePath,
		"-C", a.cfg.BaseDir,
	}
	args = append(args, a.cfg.Args...)

	for _, p := range spec.ExcludePatterns {
		args = append(args, "--exclude="+p)
	}

	if len(spec.IncludeDirs) == 0 {
		return append(args, "--files-from=/dev/null")
	}

	args = append(args, "--")

	return append(args, spec.IncludeDirs...)
}

// Staged is an archive written to a temporary file next to its final path.
// Call [Staged.Commit] to move it into place or [Staged.Discard] to drop it.
type Staged struct {
	Result

	tmpPath string
	absPath string
}

// Commit replaces the archive path with the staged file.
func (s *Staged) Commit(ctx context.Context) error {
	if err := os.Rename(s.tmpPath, s.absPath); err != nil {
		s.Discard()

		return fmt.Errorf("%w: rename archive: %w", ErrBuild, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "wrote archive",
		slog.String("path", s.Path),
		slog.String("size", humanize.Bytes(uint64(max(s.Size, 0)))),
	)

	return nil
}

// Discard removes the staged file. It is safe to call after a failed Commit.
func (s *Staged) Discard() {
	_ = os.Remove(s.tmpPath)
}

// Build writes the archive for spec to archivePath.
//
// The tool writes to a temporary file in the same directory, which replaces
// archivePath only when the tool succeeds.
func (a *Archiver) Build(ctx context.Context, spec compiler.ArchiveSpec, archivePath string) (*Result, error) {
	st, err := a.Stage(ctx, spec, archivePath)
	if err != nil {
		return nil, err
	}

	err = st.Commit(ctx)
	if err != nil {
		return nil, err
	}

	return &st.Result, nil
}

// Stage runs the archive tool for spec into a temporary file next to
// archivePath, leaving any existing archive untouched.
func (a *Archiver) Stage(ctx context.Context, spec compiler.ArchiveSpec, archivePath string) (*Staged, error) {
	ctx, span := a.tracer.Start(ctx, "archive", trace.WithAttributes(
		attribute.String("path", archivePath),
		attribute.Int("include_dirs", len(spec.IncludeDirs)),
		attribute.Int("exclude_patterns", len(spec.ExcludePatterns)),
	))
	defer span.End()

	st, err := a.stage(ctx, spec, archivePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	span.SetAttributes(attribute.Int64("size", st.Size))

	return st, nil
}

func (a *Archiver) stage(ctx context.Context, spec compiler.ArchiveSpec, archivePath string) (*Staged, error) {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return nil, fmt.Errorf("close temp file: %w", err)
	}

	cmd := execs.NewCommand(a.cfg.Tool, a.environ, a.Args(spec, tmpPath)...)
	cmd.Env = a.cfg.Env
	cmd.EnvFrom = a.cfg.EnvFrom

	// Relative arguments in Args resolve against the caller's directory.
	if _, err := cmd.Run(ctx, ""); err != nil {
		_ = os.Remove(tmpPath)

		return nil, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)

		return nil, fmt.Errorf("stat archive: %w", err)
	}

	return &Staged{
		Result:  Result{Path: archivePath, Size: info.Size()},
		tmpPath: tmpPath,
		absPath: abs,
	}, nil
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}

	return abs, nil
}

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cernvm/litescript/api/v1beta1/configs"
	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/log"
	"github.com/cernvm/litescript/pkg/ruleset"
	"github.com/cernvm/litescript/pkg/script"
)

const tracerName = "github.com/cernvm/litescript/pkg/build"

// ErrOutOfDate is returned by [Builder.Check] when the output differs from
// what a build would write.
var ErrOutOfDate = errors.New("output is out of date")

// Result describes the artifacts of a build.
type Result struct {
	Program *compiler.Program
	Archive *archive.Result
	// Script is the path of the written script.
	Script string
}

// Opt configures a [Builder].
type Opt func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	environ        []string
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Opt {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithEnviron sets the caller environment of the archive tool. Defaults to
// [os.Environ].
func WithEnviron(environ []string) Opt {
	return func(o *options) {
		o.environ = environ
	}
}

// Builder runs builds with one configuration.
type Builder struct {
	tracer   trace.Tracer
	compiler *compiler.Compiler
	archiver *archive.Archiver
}

// New creates a new [Builder]. A nil cfg uses the defaults.
func New(cfg *configs.Config, opts ...Opt) (*Builder, error) {
	if cfg == nil {
		cfg = configs.New()
	}

	cfg.EnsureDefaults()

	o := &options{
		tracerProvider: otel.GetTracerProvider(),
		environ:        os.Environ(),
	}
	for _, opt := range opts {
		opt(o)
	}

	c, err := compiler.New(cfg.Compiler)
	if err != nil {
		return nil, fmt.Errorf("create compiler: %w", err)
	}

	a, err := archive.NewArchiver(cfg.Archive,
		archive.WithEnviron(o.environ),
		archive.WithTracer(o.tracerProvider.Tracer(tracerName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create archiver: %w", err)
	}

	return &Builder{
		tracer:   o.tracerProvider.Tracer(tracerName),
		compiler: c,
		archiver: a,
	}, nil
}

// Plan compiles the ruleset at rulesetPath without side effects.
func (b *Builder) Plan(ctx context.Context, rulesetPath string) (*compiler.Program, error) {
	ctx, span := b.tracer.Start(ctx, "compile", trace.WithAttributes(
		attribute.String("ruleset", rulesetPath),
	))
	defer span.End()

	directives, err := ruleset.LoadFile(rulesetPath)
	if err != nil {
		return nil, recordError(span, err)
	}

	p, err := b.compiler.Compile(ctx, directives)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("compile %s: %w", rulesetPath, err))
	}

	span.SetAttributes(
		attribute.Int("directives", len(directives)),
		attribute.Int("pre", len(p.Pre)),
		attribute.Int("post", len(p.Post)),
	)

	return p, nil
}

// Files lists the paths the archive of p would contain, relative to the
// configured base directory.
func (b *Builder) Files(p *compiler.Program) ([]string, error) {
	files, err := archive.Files(os.DirFS(b.archiver.BaseDir()), p.Archive)
	if err != nil {
		return nil, fmt.Errorf("list archive files: %w", err)
	}

	return files, nil
}

// Build compiles the ruleset at rulesetPath and writes the script to
// outputPath, with its archive alongside.
func (b *Builder) Build(ctx context.Context, rulesetPath, outputPath string) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "build", trace.WithAttributes(
		attribute.String("ruleset", rulesetPath),
		attribute.String("output", outputPath),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	p, err := b.Plan(ctx, rulesetPath)
	if err != nil {
		return nil, recordError(span, err)
	}

	archivePath := archive.Path(outputPath, b.archiver.Compression())

	data, err := b.render(p, archivePath)
	if err != nil {
		return nil, recordError(span, err)
	}

	staged, err := b.archiver.Stage(ctx, p.Archive, archivePath)
	if err != nil {
		return nil, recordError(span, err)
	}

	// The archive replaces the old one only once the script is in place.
	err = writeFile(outputPath, data, 0o644)
	if err != nil {
		staged.Discard()

		return nil, recordError(span, fmt.Errorf("write script: %w", err))
	}

	err = staged.Commit(ctx)
	if err != nil {
		return nil, recordError(span, err)
	}

	logger.InfoContext(ctx, "wrote script",
		slog.String("path", outputPath),
		slog.Int("pre", len(p.Pre)),
		slog.Int("post", len(p.Post)),
	)

	return &Result{Program: p, Archive: &staged.Result, Script: outputPath}, nil
}

// Check compiles the ruleset and compares the script it would produce with
// the one at outputPath. It returns an error wrapping [ErrOutOfDate] with a
// unified diff when they differ. The archive is not touched.
func (b *Builder) Check(ctx context.Context, rulesetPath, outputPath string) error {
	ctx, span := b.tracer.Start(ctx, "check", trace.WithAttributes(
		attribute.String("ruleset", rulesetPath),
		attribute.String("output", outputPath),
	))
	defer span.End()

	p, err := b.Plan(ctx, rulesetPath)
	if err != nil {
		return recordError(span, err)
	}

	want, err := b.render(p, archive.Path(outputPath, b.archiver.Compression()))
	if err != nil {
		return recordError(span, err)
	}

	got, err := os.ReadFile(outputPath) //nolint:gosec // G304: Output path is chosen by the user.
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return recordError(span, fmt.Errorf("read output: %w", err))
	}

	if string(got) == string(want) {
		log.WithContext(ctx).DebugContext(ctx, "output is up to date", slog.String("path", outputPath))

		return nil
	}

	diff := udiff.Unified(outputPath, outputPath+" (generated)", string(got), string(want))

	return recordError(span, fmt.Errorf("%w: %s\n%s", ErrOutOfDate, outputPath, diff))
}

func (b *Builder) render(p *compiler.Program, archivePath string) ([]byte, error) {
	data, err := script.Bytes(p, script.Archive{
		Name:        filepath.Base(archivePath),
		Compression: b.archiver.Compression(),
	})
	if err != nil {
		return nil, fmt.Errorf("render script: %w", err)
	}

	return data, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

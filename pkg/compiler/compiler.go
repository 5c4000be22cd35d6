package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cernvm/litescript/pkg/log"
	"github.com/cernvm/litescript/pkg/ruleset"
)

// PostPrefix routes a directive to [PhasePost].
const PostPrefix = "post-"

// Compiler compiles directives into a [Program]. A Compiler holds only its
// configuration; every call to [Compiler.Compile] starts from an empty
// [Program], so one Compiler may be shared.
type Compiler struct {
	cfg Config
}

// New creates a new [Compiler]. A nil cfg uses the defaults.
func New(cfg *Config) (*Compiler, error) {
	c := &Compiler{cfg: *NewConfig()}
	if cfg != nil {
		c.cfg = *cfg
		c.cfg.EnsureDefaults()
	}

	err := c.cfg.Validate()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// MustNew creates a new [Compiler] and panics on error.
func MustNew(cfg *Config) *Compiler {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}

	return c
}

// Verbs returns the recognized verbs, sorted.
func Verbs() []string {
	verbs := make([]string, 0, len(actions))
	for verb := range actions {
		verbs = append(verbs, verb)
	}

	slices.Sort(verbs)

	return verbs
}

// Compile processes directives in order and returns the resulting [Program].
// The first failing directive aborts the compile with a [*DirectiveError].
func (c *Compiler) Compile(ctx context.Context, directives []ruleset.Directive) (*Program, error) {
	p := NewProgram()

	for _, d := range directives {
		expanded := []ruleset.Directive{d}
		if c.cfg.ExpandBraces {
			verb, _ := resolveVerb(d.Verb)
			expanded = ruleset.ExpandDirective(d, listArgs[verb]...)
		}

		for _, ed := range expanded {
			err := c.dispatch(ctx, p, ed)
			if err != nil {
				return nil, &DirectiveError{Directive: ed, Err: err}
			}
		}
	}

	return p, nil
}

func (c *Compiler) dispatch(ctx context.Context, p *Program, d ruleset.Directive) error {
	logger := log.WithContext(ctx)

	verb, ph := resolveVerb(d.Verb)

	act, ok := actions[verb]
	if !ok {
		if c.cfg.UnknownVerbs == UnknownVerbIgnore {
			logger.WarnContext(ctx, "ignoring unknown verb",
				slog.String("verb", d.Verb),
				slog.Int("line", d.Line),
			)

			return nil
		}

		return fmt.Errorf("%w %q", ErrUnknownVerb, verb)
	}

	logger.DebugContext(ctx, "compile directive",
		slog.String("verb", verb),
		slog.String("phase", ph.String()),
		slog.Any("args", d.Args),
		slog.Int("line", d.Line),
	)

	return act(c, p, ph, d)
}

// resolveVerb lower-cases verb and strips [PostPrefix], returning the phase
// it selects.
func resolveVerb(verb string) (string, Phase) {
	verb = strings.ToLower(verb)
	if v, ok := strings.CutPrefix(verb, PostPrefix); ok {
		return v, PhasePost
	}

	return verb, PhasePre
}

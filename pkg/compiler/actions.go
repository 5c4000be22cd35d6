package compiler

import (
	"fmt"
	"path"
	"strings"

	"github.com/cernvm/litescript/pkg/ruleset"
)

// action compiles one directive whose verb has already been resolved.
type action func(c *Compiler, p *Program, ph Phase, d ruleset.Directive) error

var actions = map[string]action{
	"copy":     compileCopy,
	"readonly": compileReadOnly,
	"writable": compileWritable,
	"bind":     compileWritable,
	"touch":    compileTouch,
	"set":      compileSet,
}

// listArgs holds the indexes of space-separated list arguments per verb.
var listArgs = map[string][]int{
	"copy":     {1},
	"writable": {1},
	"bind":     {1},
}

// compileCopy adds a directory to the archive, along with optional
// space-separated exclude patterns.
func compileCopy(_ *Compiler, p *Program, _ Phase, d ruleset.Directive) error {
	dir, err := required(d, 0, "dir")
	if err != nil {
		return err
	}

	p.Archive.IncludeDirs = append(p.Archive.IncludeDirs, dir)
	if excludes, ok := d.Arg(1); ok {
		p.Archive.ExcludePatterns = append(p.Archive.ExcludePatterns, strings.Fields(excludes)...)
	}

	return nil
}

// compileReadOnly bind-mounts a directory read-only from the base filesystem.
func compileReadOnly(_ *Compiler, p *Program, ph Phase, d ruleset.Directive) error {
	dir, err := required(d, 0, "dir")
	if err != nil {
		return err
	}

	p.emit(ph, Statement{Op: OpReadOnly, Path: dir, Line: d.Line})

	return nil
}

// compileWritable creates a writable directory, and optionally a list of
// subdirectories inside it.
func compileWritable(c *Compiler, p *Program, ph Phase, d ruleset.Directive) error {
	dir, err := required(d, 0, "dir")
	if err != nil {
		return err
	}

	p.emit(ph, Statement{Op: OpWritable, Path: dir, Line: d.Line})

	list, ok := d.Arg(1)
	if !ok {
		return nil
	}

	subdirs := strings.Fields(list)
	if len(subdirs) == 0 {
		return nil
	}

	if c.cfg.Subdirs == SubdirLoop {
		p.emit(ph, Statement{Op: OpMkdirEach, Path: dir, Items: subdirs, Line: d.Line})

		return nil
	}

	for _, sub := range subdirs {
		p.emit(ph, Statement{Op: OpMkdir, Path: path.Join(dir, sub), Line: d.Line})
	}

	return nil
}

// compileTouch creates an empty file, optionally changing its mode.
func compileTouch(_ *Compiler, p *Program, ph Phase, d ruleset.Directive) error {
	file, err := required(d, 0, "path")
	if err != nil {
		return err
	}

	p.emit(ph, Statement{Op: OpTouch, Path: file, Line: d.Line})
	if mode, ok := d.Arg(1); ok {
		p.emit(ph, Statement{Op: OpChmod, Path: file, Mode: mode, Line: d.Line})
	}

	return nil
}

// compileSet stores a configurable parameter. The value may be empty, but
// must be present.
func compileSet(_ *Compiler, p *Program, _ Phase, d ruleset.Directive) error {
	key, err := required(d, 0, "key")
	if err != nil {
		return err
	}
	if len(d.Args) < 2 {
		return fmt.Errorf("%w: value", ErrMissingArgument)
	}

	p.Parameters[key] = d.Args[1]

	return nil
}

func required(d ruleset.Directive, i int, name string) (string, error) {
	v, ok := d.Arg(i)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}

	return v, nil
}

package compiler

import "fmt"

// Phase selects where statements run relative to archive extraction.
type Phase int

const (
	// PhasePre statements run before the archive is extracted.
	PhasePre Phase = iota
	// PhasePost statements run after the archive is extracted.
	PhasePost
)

func (p Phase) String() string {
	switch p {
	case PhasePre:
		return "pre"
	case PhasePost:
		return "post"
	}

	return fmt.Sprintf("Phase(%d)", int(p))
}

// Op identifies the kind of a [Statement].
type Op string

const (
	// OpReadOnly bind-mounts Path read-only from the base filesystem.
	OpReadOnly Op = "readonly"
	// OpWritable creates a writable directory at Path.
	OpWritable Op = "writable"
	// OpMkdir creates the directory Path inside the guest.
	OpMkdir Op = "mkdir"
	// OpMkdirEach creates Path/item for every entry of Items, at boot time.
	OpMkdirEach Op = "mkdir-each"
	// OpTouch creates an empty file at Path.
	OpTouch Op = "touch"
	// OpChmod sets the permissions of Path to Mode.
	OpChmod Op = "chmod"
)

// Statement is one typed instruction of a phase.
type Statement struct {
	Op    Op       `json:"op"`
	Path  string   `json:"path"`
	Mode  string   `json:"mode,omitempty"`
	Items []string `json:"items,omitempty"`
	// Line is the ruleset line the statement came from.
	Line int `json:"line,omitempty"`
}

// ArchiveSpec lists what goes into the content archive.
type ArchiveSpec struct {
	// IncludeDirs are paths relative to the base filesystem, duplicates kept.
	IncludeDirs []string `json:"includeDirs"`
	// ExcludePatterns are passed through to the archive tool.
	ExcludePatterns []string `json:"excludePatterns"`
}

// Program is the compiled form of a ruleset.
type Program struct {
	Parameters map[string]string `json:"parameters"`
	Archive    ArchiveSpec       `json:"archive"`
	Pre        []Statement       `json:"pre"`
	Post       []Statement       `json:"post"`
}

// NewProgram returns an empty [Program].
func NewProgram() *Program {
	return &Program{
		Parameters: map[string]string{},
		Archive: ArchiveSpec{
			IncludeDirs:     []string{},
			ExcludePatterns: []string{},
		},
		Pre:  []Statement{},
		Post: []Statement{},
	}
}

// Phase returns the statements of the given phase.
func (p *Program) Phase(ph Phase) []Statement {
	if ph == PhasePost {
		return p.Post
	}

	return p.Pre
}

func (p *Program) emit(ph Phase, stmts ...Statement) {
	if ph == PhasePost {
		p.Post = append(p.Post, stmts...)

		return
	}

	p.Pre = append(p.Pre, stmts...)
}

package compiler

import (
	"errors"
	"fmt"
)

// UnknownVerbPolicy controls what happens to unrecognized verbs.
type UnknownVerbPolicy string

// SubdirStyle controls how `writable` subdirectory lists are emitted.
type SubdirStyle string

const (
	// UnknownVerbError fails the compile on an unrecognized verb.
	UnknownVerbError UnknownVerbPolicy = "error"
	// UnknownVerbIgnore logs and skips unrecognized verbs.
	UnknownVerbIgnore UnknownVerbPolicy = "ignore"

	// SubdirLoop emits a shell loop over the list, evaluated at boot.
	SubdirLoop SubdirStyle = "loop"
	// SubdirUnroll emits one mkdir statement per list entry.
	SubdirUnroll SubdirStyle = "unroll"
)

// ErrInvalidConfig is returned for unsupported configuration values.
var ErrInvalidConfig = errors.New("invalid compiler config")

// Config defines compiler behavior.
type Config struct {
	// UnknownVerbs selects strict (error) or lenient (ignore) handling of unrecognized verbs.
	UnknownVerbs UnknownVerbPolicy `json:"unknownVerbs,omitempty" jsonschema:"title=Unknown Verbs,enum=error,enum=ignore"`
	// Subdirs selects how writable subdirectory lists are emitted.
	Subdirs SubdirStyle `json:"subdirs,omitempty" jsonschema:"title=Subdirectory Style,enum=loop,enum=unroll"`
	// ExpandBraces enables `a{b,c}` expansion of directive arguments.
	ExpandBraces bool `json:"expandBraces,omitempty" jsonschema:"title=Expand Braces"`
}

// NewConfig returns a [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills unset fields.
func (c *Config) EnsureDefaults() {
	if c.UnknownVerbs == "" {
		c.UnknownVerbs = UnknownVerbError
	}
	if c.Subdirs == "" {
		c.Subdirs = SubdirLoop
	}
}

// Validate checks that all values are supported.
func (c *Config) Validate() error {
	switch c.UnknownVerbs {
	case UnknownVerbError, UnknownVerbIgnore:
	default:
		return fmt.Errorf("%w: unknownVerbs %q", ErrInvalidConfig, c.UnknownVerbs)
	}

	switch c.Subdirs {
	case SubdirLoop, SubdirUnroll:
	default:
		return fmt.Errorf("%w: subdirs %q", ErrInvalidConfig, c.Subdirs)
	}

	return nil
}

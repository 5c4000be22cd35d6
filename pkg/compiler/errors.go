package compiler

import (
	"errors"
	"fmt"

	"github.com/cernvm/litescript/pkg/ruleset"
)

var (
	// ErrMissingArgument is returned when a directive lacks a required argument.
	ErrMissingArgument = errors.New("missing argument")
	// ErrUnknownVerb is returned for unrecognized verbs in strict mode.
	ErrUnknownVerb = errors.New("unknown verb")
)

// DirectiveError reports a failure to compile one directive.
type DirectiveError struct {
	Err       error
	Directive ruleset.Directive
}

func (e *DirectiveError) Error() string {
	if e.Directive.Line > 0 {
		return fmt.Sprintf("line %d: %s: %v", e.Directive.Line, e.Directive.Verb, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Directive.Verb, e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

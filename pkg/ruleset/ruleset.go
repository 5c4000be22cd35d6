package ruleset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// Delimiter separates the verb and arguments of a directive.
	Delimiter = ":"
	// CommentPrefix marks a line as a comment.
	CommentPrefix = "#"
)

// Directive is one parsed ruleset line.
type Directive struct {
	// Verb is the action name, as written in the ruleset.
	Verb string `json:"verb"`
	// Args holds the remaining delimited fields, in order.
	Args []string `json:"args,omitempty"`
	// Line is the 1-based source line number, or 0 if unknown.
	Line int `json:"line,omitempty"`
}

// Arg returns the i-th argument and whether it is present and non-empty.
func (d Directive) Arg(i int) (string, bool) {
	if i < 0 || i >= len(d.Args) {
		return "", false
	}

	return d.Args[i], d.Args[i] != ""
}

func (d Directive) String() string {
	return strings.Join(append([]string{d.Verb}, d.Args...), Delimiter)
}

// Parse reads directives from r.
//
// Lines are trimmed; empty lines and comment lines are skipped. Every other
// line is split on [Delimiter], with the first field becoming the verb.
func Parse(r io.Reader) ([]Directive, error) {
	s := bufio.NewScanner(r)
	directives := []Directive{}

	lineNo := 0
	for s.Scan() {
		lineNo++

		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		fields := strings.Split(line, Delimiter)
		directives = append(directives, Directive{
			Verb: fields[0],
			Args: fields[1:],
			Line: lineNo,
		})
	}

	err := s.Err()
	if err != nil {
		return nil, fmt.Errorf("scan ruleset: %w", err)
	}

	return directives, nil
}

// ParseString parses directives from a string.
func ParseString(src string) ([]Directive, error) {
	return Parse(strings.NewReader(src))
}

// LoadFile reads and parses the ruleset at path.
func LoadFile(path string) ([]Directive, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Ruleset path comes from the caller.
	if err != nil {
		return nil, fmt.Errorf("open ruleset: %w", err)
	}
	defer func() { _ = f.Close() }()

	directives, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
	}

	return directives, nil
}

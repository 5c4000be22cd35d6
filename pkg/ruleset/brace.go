package ruleset

import (
	"slices"
	"strings"
)

// ExpandBraces expands shell-style brace alternatives in s.
//
// `usr/{lib,lib64}` expands to `usr/lib` and `usr/lib64`. Groups multiply,
// so `{a,b}{1,2}` yields `a1 a2 b1 b2`, and groups may nest. A group without
// a top-level comma, or an unbalanced brace, is kept literally.
func ExpandBraces(s string) []string {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}

		end, alts := splitGroup(s, start)
		if end < 0 || len(alts) < 2 {
			continue
		}

		prefix := s[:start]
		suffixes := ExpandBraces(s[end+1:])

		out := []string{}
		for _, alt := range alts {
			for _, a := range ExpandBraces(alt) {
				for _, suffix := range suffixes {
					out = append(out, prefix+a+suffix)
				}
			}
		}

		return out
	}

	return []string{s}
}

// splitGroup finds the brace matching s[start] and splits its content on
// top-level commas. It returns -1 if the brace is never closed.
func splitGroup(s string, start int) (int, []string) {
	depth := 0
	last := start + 1
	alts := []string{}

	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, append(alts, s[last:i])
			}
		case ',':
			if depth == 1 {
				alts = append(alts, s[last:i])
				last = i + 1
			}
		}
	}

	return -1, nil
}

// ExpandDirective applies [ExpandBraces] to the arguments of d.
//
// If the first argument expands to several strings, the directive is
// repeated once per string, in order. The arguments at the indexes in lists
// are space-separated lists: each token is expanded and the results are
// joined back with spaces. Other arguments are kept verbatim.
func ExpandDirective(d Directive, lists ...int) []Directive {
	if len(d.Args) == 0 {
		return []Directive{d}
	}

	rest := slices.Clone(d.Args[1:])
	for _, i := range lists {
		if i > 0 && i < len(d.Args) {
			rest[i-1] = expandList(d.Args[i])
		}
	}

	firsts := []string{d.Args[0]}
	if strings.Contains(d.Args[0], "{") {
		firsts = ExpandBraces(d.Args[0])
	}

	out := make([]Directive, 0, len(firsts))
	for _, first := range firsts {
		args := make([]string, 0, len(d.Args))
		args = append(args, first)
		args = append(args, rest...)

		out = append(out, Directive{
			Verb: d.Verb,
			Args: args,
			Line: d.Line,
		})
	}

	return out
}

func expandList(arg string) string {
	if !strings.Contains(arg, "{") {
		return arg
	}

	tokens := []string{}
	for _, field := range strings.Fields(arg) {
		tokens = append(tokens, ExpandBraces(field)...)
	}

	return strings.Join(tokens, " ")
}

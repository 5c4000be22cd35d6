// Package ruleset parses litescript rulesets.
//
// A ruleset is line-oriented. Each non-blank line that does not start with
// `#` is one [Directive], written as `verb:arg1:arg2`. Parsing is permissive:
// no line is ever rejected here, argument counts are checked when the
// directive is compiled.
package ruleset

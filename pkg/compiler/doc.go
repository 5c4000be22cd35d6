// Package compiler turns ruleset directives into a [Program].
//
// Each directive verb may carry a `post-` prefix, which routes its statements
// to the post-extraction phase instead of the pre-extraction phase. The
// statements themselves are typed records; rendering them into shell text is
// left to the script package.
package compiler

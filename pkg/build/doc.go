// Package build runs the litescript pipeline.
//
// A build loads a ruleset, compiles it, renders the boot script, produces the
// content archive and finally writes the script. Nothing is written at the
// output path unless every earlier stage succeeded.
package build

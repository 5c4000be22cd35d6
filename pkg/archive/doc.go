// Package archive builds the content archive of a compiled ruleset.
//
// The archive holds the directories named by `copy` directives, relative to
// a base filesystem location, minus the exclude patterns. It is produced by
// an external tar-compatible tool and is extracted into the guest root by
// the generated script.
package archive

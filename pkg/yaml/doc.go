// Package yaml wraps [github.com/goccy/go-yaml] for litescript configuration
// and plan output, adding JSON schema generation and validation with errors
// that point back into the YAML source.
package yaml

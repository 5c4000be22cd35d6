// Package config loads litescript configuration files.
//
// Documents are decoded as YAML, checked against the JSON schema of their
// kind, decoded into the Go type, and finally validated in Go. Every error
// carries the YAML source location when one is known.
package config

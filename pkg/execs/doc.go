// Package execs runs external tools on behalf of litescript, such as the
// archive tool that packs copied directories.
//
// Tools run with a reduced environment: only a few essential variables are
// inherited from the caller, plus whatever [EnvVar] and [EnvFromSource]
// entries the configuration adds.
package execs

package execs

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// EssentialVars are always inherited from the caller environment.
var EssentialVars = []string{"PATH", "HOME", "USER", "TERM", "COLORTERM", "TMPDIR"}

// EnvFromSource inherits a set of variables from the caller.
type EnvFromSource struct {
	// CallerRef selects the caller variables to inherit.
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// CallerRef references variables of the caller process, by name or pattern.
type CallerRef struct {
	compiled *regexp.Regexp

	// Pattern is a regex matched against variable names.
	Pattern string `json:"pattern,omitempty" jsonschema:"title=Pattern,format=regex"`
	// Name is a single variable name.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
}

// EnvVar defines one variable of the tool environment.
type EnvVar struct {
	// ValueFrom takes the value from the caller environment.
	ValueFrom *EnvVarSource `json:"valueFrom,omitempty" jsonschema:"title=Value From"`
	// Name is the variable name.
	Name string `json:"name" jsonschema:"title=Name"`
	// Value is a static value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// EnvVarSource is the source of an [EnvVar] value.
type EnvVarSource struct {
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// Compile compiles the pattern, if any. It is safe to call more than once.
func (c *CallerRef) Compile() error {
	if c.compiled != nil || c.Pattern == "" {
		return nil
	}

	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", c.Pattern, err)
	}

	c.compiled = re

	return nil
}

// ParseEnviron converts `KEY=value` entries, as returned by [os.Environ],
// into a map. Entries without `=` are dropped.
func ParseEnviron(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}

	return m
}

// BuildEnv resolves the tool environment against the caller environment base.
// EnvFrom sources are applied before Env entries, so an [EnvVar] can both
// override and reference inherited variables. The result is sorted.
func BuildEnv(base map[string]string, env []EnvVar, envFrom []EnvFromSource) ([]string, error) {
	out := map[string]string{}

	for _, key := range EssentialVars {
		if v, ok := base[key]; ok {
			out[key] = v
		}
	}

	for i, src := range envFrom {
		ref := src.CallerRef
		if ref == nil {
			continue
		}

		err := ref.Compile()
		if err != nil {
			return nil, fmt.Errorf("envFrom[%d]: %w", i, err)
		}

		if ref.compiled != nil {
			for k, v := range base {
				if ref.compiled.MatchString(k) {
					out[k] = v
				}
			}
		}
		if v, ok := base[ref.Name]; ok && ref.Name != "" {
			out[ref.Name] = v
		}
	}

	for _, ev := range env {
		if ev.Name == "" {
			continue
		}

		if ev.Value != "" {
			out[ev.Name] = ev.Value

			continue
		}

		if ev.ValueFrom != nil && ev.ValueFrom.CallerRef != nil {
			name := ev.ValueFrom.CallerRef.Name
			if v, ok := out[name]; ok {
				out[ev.Name] = v
			} else if v, ok := base[name]; ok {
				out[ev.Name] = v
			}
		}
	}

	environ := make([]string, 0, len(out))
	for k, v := range out {
		environ = append(environ, k+"="+v)
	}

	slices.Sort(environ)

	return environ, nil
}

// Package v1beta1 contains the v1beta1 API types for litescript configuration.
package v1beta1

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// APIVersion is the current API version of all litescript configuration kinds.
const APIVersion = "litescript.cernvm.ch/v1beta1"

var (
	// ValidAPIVersions lists the accepted apiVersion values.
	ValidAPIVersions = []string{APIVersion}

	// ErrUnsupportedType is returned for an unknown apiVersion or kind.
	ErrUnsupportedType = errors.New("unsupported type")
)

// TypeMeta identifies the kind and version of a configuration document.
type TypeMeta struct {
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Check returns [ErrUnsupportedType] unless the apiVersion is one of
// [ValidAPIVersions] and the kind is one of kinds.
func (tm TypeMeta) Check(kinds ...string) error {
	if !slices.Contains(ValidAPIVersions, tm.APIVersion) {
		return fmt.Errorf("%w: apiVersion %q", ErrUnsupportedType, tm.APIVersion)
	}

	if !slices.Contains(kinds, tm.Kind) {
		return fmt.Errorf("%w: kind %q", ErrUnsupportedType, tm.Kind)
	}

	return nil
}

// Object is implemented by every configuration kind.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
	Validate() error
}

// ExtendSchemaWithEnums restricts the apiVersion and kind properties of jss
// to the given values. It panics if either property is missing.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	restrict(jss, "apiVersion", "API Version", apiVersions)
	restrict(jss, "kind", "Kind", kinds)
}

func restrict(jss *jsonschema.Schema, prop, title string, values []string) {
	s, ok := jss.Properties.Get(prop)
	if !ok {
		panic(fmt.Sprintf("%s property not found in schema", prop))
	}

	for _, v := range values {
		s.OneOf = append(s.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: v,
			Title: title,
		})
	}

	jss.Properties.Set(prop, s)
}

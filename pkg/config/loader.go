package config

import (
	"bytes"
	"fmt"

	"github.com/cernvm/litescript/api"
	"github.com/cernvm/litescript/api/v1beta1"
	"github.com/cernvm/litescript/pkg/yaml"
)

// Validator validates decoded configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// Loader decodes and validates a configuration document of kind T.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] for data. The newFunc parameter is
// the constructor of T, such as configs.New. A nil validator skips schema
// validation.
func NewLoaderFromBytes[T v1beta1.Object](data []byte, newFunc func() T, validator Validator) *Loader[T] {
	return &Loader[T]{
		data:      data,
		newFunc:   newFunc,
		validator: validator,
	}
}

// NewLoaderFromFile creates a [Loader] for the file at path.
func NewLoaderFromFile[T v1beta1.Object](
	path string,
	newFunc func() T,
	validator Validator,
) (*Loader[T], error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	return NewLoaderFromBytes(data, newFunc, validator), nil
}

// Validate checks the document against the schema.
func (l *Loader[T]) Validate() error {
	var doc any

	err := yaml.NewDecoder(bytes.NewReader(l.data)).Decode(&doc)
	if err != nil {
		return l.wrap(err)
	}

	if l.validator == nil {
		return nil
	}

	return l.wrap(l.validator.Validate(doc))
}

// Load decodes the document into a new T, fills defaults and runs its
// Validate method.
//
//nolint:ireturn // Generic type parameter.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	cfg := l.newFunc()

	err := yaml.NewDecoder(bytes.NewReader(l.data)).Decode(cfg)
	if err != nil {
		return zero, l.wrap(err)
	}

	cfg.EnsureDefaults()

	err = cfg.Validate()
	if err != nil {
		return zero, fmt.Errorf("invalid %s: %w", cfg.GetKind(), err)
	}

	return cfg, nil
}

func (l *Loader[T]) wrap(err error) error {
	return yaml.Wrap(err, yaml.WithSource(l.data))
}

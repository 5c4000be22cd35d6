// Package configs provides the Configuration kind.
package configs

import (
	"fmt"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/cernvm/litescript/api"
	"github.com/cernvm/litescript/api/v1beta1"
	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -o configs.v1beta1.json

const (
	// Kind is the kind of the configuration document.
	Kind = "Configuration"

	// SchemaID is the `$id` of the configuration JSON schema.
	SchemaID = "/configs.v1beta1.json"
)

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	// ValidKinds contains the valid kind values.
	ValidKinds = []string{Kind}

	// ProjectFileNames are searched for next to the ruleset and in its
	// parent directories.
	ProjectFileNames = []string{".litescript.yaml", "litescript.yaml"}

	// DefaultValidator validates configuration documents against the schema
	// reflected from [Config].
	DefaultValidator = mustValidator()

	_ v1beta1.Object = (*Config)(nil)
)

// Config is the litescript configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Compiler configures directive handling.
	Compiler *compiler.Config `json:"compiler,omitempty" jsonschema:"title=Compiler"`
	// Archive configures the content archive.
	Archive          *archive.Config `json:"archive,omitempty" jsonschema:"title=Archive"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       Kind,
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil sections and their unset fields.
func (c *Config) EnsureDefaults() {
	if c.Compiler == nil {
		c.Compiler = compiler.NewConfig()
	} else {
		c.Compiler.EnsureDefaults()
	}

	if c.Archive == nil {
		c.Archive = archive.NewConfig()
	} else {
		c.Archive.EnsureDefaults()
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	err := c.Check(ValidKinds...)
	if err != nil {
		return err //nolint:wrapcheck // Already describes the field.
	}

	if c.Compiler != nil {
		err := c.Compiler.Validate()
		if err != nil {
			return fmt.Errorf("compiler: %w", err)
		}
	}

	if c.Archive != nil {
		err := c.Archive.Validate()
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	return nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// Schema returns the JSON schema of [Config].
func Schema() ([]byte, error) {
	b, err := yaml.NewSchemaGenerator(&Config{}, SchemaID).Generate()
	if err != nil {
		return nil, fmt.Errorf("generate config schema: %w", err)
	}

	return b, nil
}

// DefaultYAML returns the commented default configuration document.
func DefaultYAML() []byte {
	return defaultConfigYAML
}

// WriteDefault writes the default configuration document to path.
// Using force backs up and replaces an existing file.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// GetPath returns the path of the user configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}

func mustValidator() *yaml.Validator {
	v, err := yaml.NewValidatorFor(&Config{}, SchemaID)
	if err != nil {
		panic(fmt.Errorf("compile config schema: %w", err))
	}

	return v
}

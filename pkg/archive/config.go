package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cernvm/litescript/pkg/execs"
)

const (
	// DefaultBaseDir is the host location that archived paths are relative to.
	DefaultBaseDir = "/mnt/.ro/cvm3/"
	// DefaultTool is the archive tool executable.
	DefaultTool = "tar"

	// nameSuffix is appended to the output base name to form the archive name.
	nameSuffix = "-files"
)

// ErrInvalidConfig is returned for unsupported configuration values.
var ErrInvalidConfig = errors.New("invalid archive config")

// Compression selects the archive compression.
type Compression string

const (
	CompressionBzip2 Compression = "bzip2"
	CompressionGzip  Compression = "gzip"
	CompressionXZ    Compression = "xz"
)

// Flag returns the tar flag selecting the compression.
func (c Compression) Flag() string {
	switch c {
	case CompressionGzip:
		return "z"
	case CompressionXZ:
		return "J"
	case CompressionBzip2:
	}

	return "j"
}

// Ext returns the archive file extension, without the dot.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return "tgz"
	case CompressionXZ:
		return "txz"
	case CompressionBzip2:
	}

	return "tbz2"
}

// Config defines how the archive is built.
type Config struct {
	// BaseDir is the host directory that copied paths are relative to.
	BaseDir string `json:"baseDir,omitempty" jsonschema:"title=Base Directory"`
	// Tool is the tar-compatible executable.
	Tool string `json:"tool,omitempty" jsonschema:"title=Tool"`
	// Compression selects the compression and the archive extension.
	Compression Compression `json:"compression,omitempty" jsonschema:"title=Compression,enum=bzip2,enum=gzip,enum=xz"`
	// Args are extra tool arguments, placed before the exclude patterns.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments" yaml:"args,flow,omitempty"`
	// Env contains environment variables for the tool.
	Env []execs.EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
	// EnvFrom inherits caller environment variables into the tool environment.
	EnvFrom []execs.EnvFromSource `json:"envFrom,omitempty" jsonschema:"title=Environment Variables From"`
}

// NewConfig returns a [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills unset fields.
func (c *Config) EnsureDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Compression == "" {
		c.Compression = CompressionBzip2
	}
}

// Validate checks that all values are supported.
func (c *Config) Validate() error {
	switch c.Compression {
	case CompressionBzip2, CompressionGzip, CompressionXZ:
	default:
		return fmt.Errorf("%w: compression %q", ErrInvalidConfig, c.Compression)
	}

	if strings.TrimSpace(c.Tool) == "" {
		return fmt.Errorf("%w: empty tool", ErrInvalidConfig)
	}

	for i, src := range c.EnvFrom {
		if src.CallerRef == nil {
			continue
		}

		err := src.CallerRef.Compile()
		if err != nil {
			return fmt.Errorf("%w: envFrom[%d]: %w", ErrInvalidConfig, i, err)
		}
	}

	return nil
}

// Name returns the archive file name for the script at outputPath: the
// script's base name without its last extension, plus `-files.<ext>`.
func Name(outputPath string, c Compression) string {
	base := filepath.Base(outputPath)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}

	return base + nameSuffix + "." + c.Ext()
}

// Path returns the archive path next to the script at outputPath.
func Path(outputPath string, c Compression) string {
	return filepath.Join(filepath.Dir(outputPath), Name(outputPath, c))
}

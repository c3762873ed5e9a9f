package gen

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/syssam/rowset/dialect"
)

// Config holds the configuration of a generation run. It is usually read
// from a rowsetc.yaml file next to the model definitions.
type Config struct {
	// Models is the path of the YAML model definitions.
	Models string `yaml:"models"`
	// Target is the output directory.
	Target string `yaml:"target"`
	// Package is the name of the generated Go package.
	Package string `yaml:"package"`
	// Dialects lists the dialects DDL scripts are generated for.
	Dialects []string `yaml:"dialects"`
	// Header is written at the top of every generated file.
	Header string `yaml:"header,omitempty"`
	// Workers bounds the files generated concurrently. Zero means
	// GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
	// SkipGo disables the generation of Go model definitions.
	SkipGo bool `yaml:"skip_go,omitempty"`
	// Acronyms are kept upper case in generated identifiers.
	Acronyms []string `yaml:"acronyms,omitempty"`
}

// DefaultHeader is the header of generated files.
const DefaultHeader = "Code generated by rowsetc, DO NOT EDIT."

// Option configures code generation.
type Option func(*Config) error

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the name of the generated Go package.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithDialects sets the dialects DDL scripts are generated for.
func WithDialects(names ...string) Option {
	return func(c *Config) error {
		for _, name := range names {
			if !slices.Contains(dialects, name) {
				return NewConfigError("Dialects", name, "unsupported dialect; use sqlserver, mysql, postgres, or sqlite")
			}
		}
		c.Dialects = names
		return nil
	}
}

// WithWorkers sets the number of files generated concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

var dialects = []string{dialect.SQLServer, dialect.MySQL, dialect.Postgres, dialect.SQLite}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the missing or invalid settings of the config.
func (c *Config) Validate() error {
	var errs []error
	if c.Target == "" {
		errs = append(errs, NewConfigError("Target", nil, "missing target directory"))
	}
	if !c.SkipGo && c.Package == "" {
		errs = append(errs, NewConfigError("Package", nil, "missing package name"))
	}
	for _, name := range c.Dialects {
		if !slices.Contains(dialects, name) {
			errs = append(errs, NewConfigError("Dialects", name, "unsupported dialect"))
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Header: DefaultHeader}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfig reads a YAML config file and applies opts over it. Relative
// paths are kept as written.
func LoadConfig(path string, opts ...Option) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rowsetc: read config: %w", err)
	}
	c := &Config{Header: DefaultHeader}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, NewConfigError("file", path, err.Error())
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

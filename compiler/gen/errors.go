package gen

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("rowsetc: invalid configuration")
	// ErrGenerate is matched by every *GenerationError.
	ErrGenerate = errors.New("rowsetc: generation failed")
)

// ConfigError reports an invalid generator option or config file entry.
type ConfigError struct {
	Option  string
	Value   any // nil when the option is missing
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("rowsetc: %s: %s", e.Option, e.Message)
	}
	return fmt.Sprintf("rowsetc: %s=%v: %s", e.Option, e.Value, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError returns a ConfigError for the named option.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// GenerationError reports a failure producing one output file. Phase is
// one of "ddl", "go", "render", "format" or "write".
type GenerationError struct {
	Phase   string
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	parts := []string{"rowsetc: " + strings.TrimSpace(e.Phase+" "+e.File)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerate }

// NewGenerationError returns a GenerationError for file.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{Phase: phase, File: file, Message: message, Cause: cause}
}

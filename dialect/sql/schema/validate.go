package schema

import (
	"fmt"
	"strings"

	"ariga.io/atlas/sql/schema"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures schema validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn    bool
	allowDropTable     bool
	allowDropIndex     bool
	allowNullToNotNull bool
}

// AllowDropColumn allows dropping columns without error.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// AllowDropTable allows dropping tables without error.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropTable = true
	}
}

// AllowDropIndex allows dropping indexes without error.
func AllowDropIndex() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropIndex = true
	}
}

// AllowNullToNotNull allows changing nullable columns to not null.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.allowNullToNotNull = true
	}
}

// ValidateChanges validates the changes planned for a schema. Destructive
// changes are reported as breaking errors unless allowed by an option, in
// which case they are reported as warnings.
//
// Example:
//
//	result := schema.ValidateChanges(changes, schema.AllowDropIndex())
//	if result.HasBreakingChanges() {
//	    log.Fatal("Breaking changes detected:", result)
//	}
func ValidateChanges(changes []schema.Change, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	report := func(allowed bool, table, column, msg string) {
		err := &ValidationError{Table: table, Column: column, Message: msg, Breaking: true}
		if allowed {
			result.Warnings = append(result.Warnings, err)
		} else {
			result.Errors = append(result.Errors, err)
		}
	}
	for _, c := range changes {
		switch c := c.(type) {
		case *schema.DropTable:
			report(cfg.allowDropTable, c.T.Name, "", "table will be dropped")
		case *schema.ModifyTable:
			validateTableChanges(c.T.Name, c.Changes, cfg, result, report)
		}
	}
	return result
}

func validateTableChanges(table string, changes []schema.Change, cfg *validateConfig, result *ValidationResult, report func(bool, string, string, string)) {
	for _, c := range changes {
		switch c := c.(type) {
		case *schema.DropColumn:
			report(cfg.allowDropColumn, table, c.C.Name, "column will be dropped")
		case *schema.DropIndex:
			report(cfg.allowDropIndex, table, "", fmt.Sprintf("index %q will be dropped", c.I.Name))
		case *schema.ModifyColumn:
			if c.Change.Is(schema.ChangeNull) && c.From.Type.Null && !c.To.Type.Null {
				report(cfg.allowNullToNotNull, table, c.To.Name, "nullable column will become NOT NULL")
			}
			if c.Change.Is(schema.ChangeType) {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:    table,
					Column:   c.To.Name,
					Message:  "column type will change",
					Breaking: true,
				})
			}
		case *schema.DropForeignKey:
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   table,
				Message: fmt.Sprintf("foreign key %q will be dropped", c.F.Symbol),
			})
		}
	}
}

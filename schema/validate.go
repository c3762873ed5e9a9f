package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a model validation issue.
type ValidationError struct {
	Model   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Model, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Model, e.Message)
}

// ValidationResult holds the results of model validation.
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

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) warn(m *Model, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Model: m.name, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) fail(m *Model, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Model: m.name, Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateModel validates a single model definition.
func ValidateModel(m *Model) *ValidationResult {
	result := &ValidationResult{}
	if len(m.pk) == 0 {
		result.warn(m, "", "model has no primary key")
	}
	if id := m.identity; id != nil && !slices.ContainsFunc(m.pk, func(p KeyPart) bool { return p.Column == id }) {
		result.warn(m, id.Name, "identity column is not part of the primary key")
	}
	if c := m.parent; c != nil {
		parent := c.Parent
		for _, p := range c.Relationship.Mapping {
			src := p.Source
			if !slices.ContainsFunc(parent.pk, func(k KeyPart) bool { return src == any(k.Column) }) {
				result.warn(m, p.Target.Name, "relationship source is not a primary key column of %s", parent.name)
			}
			if p.Source.Type() != p.Target.Type() {
				result.warn(m, p.Target.Name, "relationship converts %s to %s", p.Source.Type(), p.Target.Type())
			}
		}
	}
	for _, fk := range m.fks {
		for _, c := range fk.Columns {
			if !m.Owns(c) {
				result.fail(m, c.Name, "foreign key %q references a column outside the model", fk.Name)
			}
		}
		if len(fk.RefModel.pk) == 0 && !slices.ContainsFunc(fk.RefModel.uniques, func(u *Unique) bool {
			return slices.Equal(u.Columns, fk.RefColumns)
		}) {
			result.warn(m, "", "foreign key %q references columns that are not a key of %s", fk.Name, fk.RefModel.name)
		}
	}
	return result
}

// Validate validates the given models and their descendants.
func Validate(models ...*Model) *ValidationResult {
	result := &ValidationResult{}
	tables := make(map[string]*Model)
	for _, root := range models {
		for _, m := range root.Hierarchy() {
			key := m.schema + "." + m.table
			if prev, ok := tables[key]; ok && prev != m {
				result.fail(m, "", "table %q is also used by model %s", m.table, prev.name)
				continue
			}
			tables[key] = m
			r := ValidateModel(m)
			result.Errors = append(result.Errors, r.Errors...)
			result.Warnings = append(result.Warnings, r.Warnings...)
		}
	}
	return result
}

// Package load reads model definitions from YAML documents.
package load

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/compiler/gen"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
	"github.com/syssam/rowset/schema/mixin"
)

// Document is the root of a model definition file.
type Document struct {
	Models []*Model `yaml:"models"`
}

// Model describes a model, its constraints and its children.
type Model struct {
	Name        string        `yaml:"name"`
	Table       string        `yaml:"table,omitempty"`
	Schema      string        `yaml:"schema,omitempty"`
	Comment     string        `yaml:"comment,omitempty"`
	RowID       bool          `yaml:"row_id,omitempty"`
	Columns     []*Column     `yaml:"columns"`
	PrimaryKey  []string      `yaml:"primary_key,omitempty"`
	Uniques     []*Unique     `yaml:"uniques,omitempty"`
	ForeignKeys []*ForeignKey `yaml:"foreign_keys,omitempty"`
	Indexes     []*Index      `yaml:"indexes,omitempty"`
	Children    []*Child      `yaml:"children,omitempty"`
	Mixins      []string      `yaml:"mixins,omitempty"`
}

// Column describes a column. Type is the name of a logical type.
type Column struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Nullable   bool     `yaml:"nullable,omitempty"`
	Size       int      `yaml:"size,omitempty"`
	Precision  uint8    `yaml:"precision,omitempty"`
	Scale      uint8    `yaml:"scale,omitempty"`
	ANSI       bool     `yaml:"ansi,omitempty"`
	Enum       []string `yaml:"enum,omitempty"`
	Identity   bool     `yaml:"identity,omitempty"`
	Default    any      `yaml:"default,omitempty"`
	DefaultSQL string   `yaml:"default_sql,omitempty"`
	Comment    string   `yaml:"comment,omitempty"`
}

// Unique describes a unique constraint.
type Unique struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Comment string   `yaml:"comment,omitempty"`
}

// ForeignKey describes a foreign key referencing another model by name.
type ForeignKey struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	Ref        string   `yaml:"ref"`
	RefColumns []string `yaml:"ref_columns"`
	OnDelete   string   `yaml:"on_delete,omitempty"`
	OnUpdate   string   `yaml:"on_update,omitempty"`
	Comment    string   `yaml:"comment,omitempty"`
}

// Index describes a secondary index. Columns prefixed with "-" are
// descending.
type Index struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
	Comment string   `yaml:"comment,omitempty"`
}

// Child binds a child model under a name, keyed by parent and child
// column pairs.
type Child struct {
	Name  string `yaml:"name"`
	Keys  []Key  `yaml:"keys"`
	Model *Model `yaml:"model"`
}

// Key maps a parent column to a child column.
type Key struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

// File reads the models defined in the YAML file at path.
func File(path string) ([]*schema.Model, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: read %s: %w", path, err)
	}
	models, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("load: %s: %w", path, err)
	}
	return models, nil
}

// Parse builds the root models defined in a YAML document. Foreign keys may
// reference any model of the document, including children.
func Parse(buf []byte) ([]*schema.Model, error) {
	var doc Document
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("load: decode document: %w", err)
	}
	var (
		roots  []*schema.Model
		byName = make(map[string]*schema.Model)
		errs   []error
	)
	for _, spec := range doc.Models {
		b := schema.Define(spec.Name, options(spec)...)
		define(b, spec, &errs)
		m, err := b.Build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		roots = append(roots, m)
		for _, hm := range m.Hierarchy() {
			if _, ok := byName[hm.Name()]; ok {
				errs = append(errs, rowset.NewSchemaError(hm.Name(), "", "model is defined twice"))
			}
			byName[hm.Name()] = hm
		}
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	var visit func(*Model)
	visit = func(spec *Model) {
		m := byName[spec.Name]
		for _, fk := range spec.ForeignKeys {
			errs = append(errs, foreignKey(m, byName, fk))
		}
		for _, c := range spec.Children {
			if c.Model != nil {
				visit(c.Model)
			}
		}
	}
	for _, spec := range doc.Models {
		visit(spec)
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return roots, nil
}

func options(spec *Model) []schema.Option {
	table := spec.Table
	if table == "" {
		table = gen.TableName(spec.Name)
	}
	opts := []schema.Option{schema.TableName(table)}
	if spec.Schema != "" {
		opts = append(opts, schema.InSchema(spec.Schema))
	}
	if spec.Comment != "" {
		opts = append(opts, schema.ModelComment(spec.Comment))
	}
	if spec.RowID {
		opts = append(opts, schema.WithRowID())
	}
	return opts
}

func define(b *schema.Builder, spec *Model, errs *[]error) {
	for _, c := range spec.Columns {
		info, err := typeInfo(c)
		if err != nil {
			*errs = append(*errs, rowset.NewSchemaError(spec.Name, c.Name, err.Error()))
			continue
		}
		var opts []schema.ColumnOption
		if c.Identity {
			opts = append(opts, schema.Identity())
		}
		if c.Default != nil {
			opts = append(opts, schema.Default(c.Default))
		}
		if c.DefaultSQL != "" {
			opts = append(opts, schema.DefaultSQL(c.DefaultSQL))
		}
		if c.Comment != "" {
			opts = append(opts, schema.Comment(c.Comment))
		}
		b.Column(c.Name, info, opts...)
	}
	for _, name := range spec.Mixins {
		mx, err := mixin.Named(name)
		if err != nil {
			*errs = append(*errs, rowset.NewSchemaError(spec.Name, name, err.Error()))
			continue
		}
		b.Mixin(mx)
	}
	if len(spec.PrimaryKey) > 0 {
		b.PrimaryKey(spec.PrimaryKey...)
	}
	for _, u := range spec.Uniques {
		b.Unique(u.Name, u.Columns, described(u.Comment)...)
	}
	for _, idx := range spec.Indexes {
		b.Index(idx.Name, idx.Unique, idx.Columns, described(idx.Comment)...)
	}
	for _, c := range spec.Children {
		if c.Model == nil {
			b.Child(c.Name, "", nil)
			continue
		}
		keys := make([]schema.Key, len(c.Keys))
		for i, k := range c.Keys {
			keys[i] = schema.On(k.Parent, k.Child)
		}
		cm := c.Model
		b.Child(c.Name, cm.Name, func(cb *schema.Builder) {
			cb.Options(options(cm)...)
			define(cb, cm, errs)
		}, keys...)
	}
}

func described(comment string) []schema.ConstraintOption {
	if comment == "" {
		return nil
	}
	return []schema.ConstraintOption{schema.Described(comment)}
}

func typeInfo(c *Column) (field.TypeInfo, error) {
	t, err := field.ParseType(strings.ToLower(c.Type))
	if err != nil {
		return field.TypeInfo{}, err
	}
	var info field.TypeInfo
	switch {
	case len(c.Enum) > 0:
		info = field.NamedEnum(t, c.Enum...)
	case t == field.TypeString:
		info = field.String(c.Size)
		info.Unicode = !c.ANSI
	case t == field.TypeChar:
		info = field.Char()
		info.Unicode = !c.ANSI
	case t == field.TypeDecimal:
		info = field.Decimal(c.Precision, c.Scale)
	default:
		info = field.TypeInfo{Type: t, Size: c.Size}
	}
	info.Nullable = c.Nullable
	return info, nil
}

func foreignKey(m *schema.Model, byName map[string]*schema.Model, spec *ForeignKey) error {
	ref, ok := byName[spec.Ref]
	if !ok {
		return rowset.NewSchemaError(m.Name(), spec.Name, fmt.Sprintf("unknown referenced model %q", spec.Ref))
	}
	fk := &schema.ForeignKey{
		Name:     spec.Name,
		RefModel: ref,
		OnDelete: action(spec.OnDelete),
		OnUpdate: action(spec.OnUpdate),
		Comment:  spec.Comment,
	}
	for _, name := range spec.Columns {
		c, err := m.Lookup(name)
		if err != nil {
			return err
		}
		fk.Columns = append(fk.Columns, c)
	}
	for _, name := range spec.RefColumns {
		c, err := ref.Lookup(name)
		if err != nil {
			return err
		}
		fk.RefColumns = append(fk.RefColumns, c)
	}
	return m.AddForeignKey(fk)
}

// action accepts "set_null" as well as "SET NULL".
func action(s string) schema.CascadeAction {
	return schema.CascadeAction(strings.ToUpper(strings.ReplaceAll(s, "_", " ")))
}

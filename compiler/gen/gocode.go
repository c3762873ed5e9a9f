package gen

import (
	"fmt"
	"time"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

const (
	schemaPkg = "github.com/syssam/rowset/schema"
	fieldPkg  = "github.com/syssam/rowset/schema/field"
	exprPkg   = "github.com/syssam/rowset/expr"
)

var typeIdents = map[field.Type]string{
	field.TypeBool:    "TypeBool",
	field.TypeUint8:   "TypeUint8",
	field.TypeChar:    "TypeChar",
	field.TypeInt16:   "TypeInt16",
	field.TypeInt32:   "TypeInt32",
	field.TypeInt64:   "TypeInt64",
	field.TypeFloat32: "TypeFloat32",
	field.TypeFloat64: "TypeFloat64",
	field.TypeDecimal: "TypeDecimal",
	field.TypeString:  "TypeString",
	field.TypeBytes:   "TypeBytes",
	field.TypeUUID:    "TypeUUID",
	field.TypeTime:    "TypeTime",
	field.TypeDate:    "TypeDate",
}

// ModelFile returns the Go file defining the root model m and its
// descendants: the table and column name constants, the enumeration
// values and a constructor building the model.
func ModelFile(pkg, header string, m *schema.Model) (*jen.File, error) {
	if m.Parent() != nil {
		return nil, NewGenerationError("go", goFile(m), "not a root model", nil)
	}
	f := jen.NewFile(pkg)
	if header != "" {
		f.HeaderComment(header)
	}
	for _, hm := range m.Hierarchy() {
		names(f, hm)
	}
	body, err := modelBody(m)
	if err != nil {
		return nil, err
	}
	ctor := "New" + pascal(m.Name())
	f.Commentf("%s defines the %s model and its children.", ctor, m.Name())
	f.Func().Id(ctor).Params().Params(jen.Op("*").Qual(schemaPkg, "Model"), jen.Error()).Block(
		append(
			[]jen.Code{jen.Id("b").Op(":=").Qual(schemaPkg, "Define").Call(defineArgs(m)...)},
			append(body, jen.Return(jen.Id("b").Dot("Build").Call()))...,
		)...,
	)
	return f, nil
}

func goFile(m *schema.Model) string {
	return snake(m.Name()) + ".go"
}

// names writes the name constants and enumeration values of m.
func names(f *jen.File, m *schema.Model) {
	prefix := pascal(m.Name())
	consts := []jen.Code{jen.Id(prefix + "Table").Op("=").Lit(m.TableName())}
	for _, c := range m.Columns() {
		if c.System != 0 {
			continue
		}
		consts = append(consts, jen.Id(prefix+pascal(c.Name)).Op("=").Lit(c.Name))
	}
	f.Commentf("Table and column names of %s.", m.Name())
	f.Const().Defs(consts...)
	for _, c := range m.Columns() {
		if c.Info.Enum == nil || len(c.Info.Enum.Names) == 0 {
			continue
		}
		id := prefix + plural(pascal(c.Name))
		f.Commentf("%s lists the values of the %s column, by ordinal.", id, c.Name)
		f.Var().Id(id).Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
			for _, n := range c.Info.Enum.Names {
				g.Lit(n)
			}
		})
	}
}

func defineArgs(m *schema.Model) []jen.Code {
	return append([]jen.Code{jen.Lit(m.Name())}, modelOptions(m)...)
}

func modelOptions(m *schema.Model) []jen.Code {
	opts := []jen.Code{jen.Qual(schemaPkg, "TableName").Call(jen.Lit(m.TableName()))}
	if m.Schema() != "" {
		opts = append(opts, jen.Qual(schemaPkg, "InSchema").Call(jen.Lit(m.Schema())))
	}
	if m.Comment() != "" {
		opts = append(opts, jen.Qual(schemaPkg, "ModelComment").Call(jen.Lit(m.Comment())))
	}
	if m.RowID() != nil {
		opts = append(opts, jen.Qual(schemaPkg, "WithRowID").Call())
	}
	return opts
}

// modelBody returns the builder calls registering the members of m on the
// builder b.
func modelBody(m *schema.Model) ([]jen.Code, error) {
	if len(m.Checks()) > 0 {
		return nil, NewGenerationError("go", goFile(m.Root()), fmt.Sprintf("model %s: check constraints have no source form", m.Name()), nil)
	}
	var stmts []jen.Code
	for _, c := range m.Columns() {
		if c.System != 0 {
			continue
		}
		col, err := column(c)
		if err != nil {
			return nil, NewGenerationError("go", goFile(m.Root()), fmt.Sprintf("model %s", m.Name()), err)
		}
		stmts = append(stmts, col)
	}
	if pk := m.PrimaryKey(); len(pk) > 0 {
		stmts = append(stmts, jen.Id("b").Dot("PrimaryKey").CallFunc(func(g *jen.Group) {
			for _, p := range pk {
				g.Lit(partName(p))
			}
		}))
	}
	for _, u := range m.Uniques() {
		stmts = append(stmts, jen.Id("b").Dot("Unique").Call(
			append([]jen.Code{jen.Lit(u.Name), columnNames(u.Columns)}, described(u.Comment)...)...,
		))
	}
	for _, idx := range m.Indexes() {
		parts := jen.Index().String().ValuesFunc(func(g *jen.Group) {
			for _, p := range idx.Parts {
				g.Lit(partName(p))
			}
		})
		stmts = append(stmts, jen.Id("b").Dot("Index").Call(
			append([]jen.Code{jen.Lit(idx.Name), jen.Lit(idx.Unique), parts}, described(idx.Comment)...)...,
		))
	}
	for _, ch := range m.Children() {
		body, err := modelBody(ch.Model)
		if err != nil {
			return nil, err
		}
		define := append([]jen.Code{jen.Id("b").Dot("Options").Call(modelOptions(ch.Model)...)}, body...)
		args := []jen.Code{
			jen.Lit(ch.Name),
			jen.Lit(ch.Model.Name()),
			jen.Func().Params(jen.Id("b").Op("*").Qual(schemaPkg, "Builder")).Block(define...),
		}
		for _, p := range ch.Relationship.Mapping {
			src, ok := p.Source.(*expr.Column)
			if !ok {
				return nil, NewGenerationError("go", goFile(m.Root()), fmt.Sprintf("child %s: constant keys have no source form", ch.Name), nil)
			}
			args = append(args, jen.Qual(schemaPkg, "On").Call(jen.Lit(src.Name), jen.Lit(p.Target.Name)))
		}
		stmts = append(stmts, jen.Id("b").Dot("Child").Call(args...))
	}
	return stmts, nil
}

func partName(p schema.KeyPart) string {
	if p.Desc {
		return "-" + p.Column.Name
	}
	return p.Column.Name
}

func columnNames(cols []*expr.Column) jen.Code {
	return jen.Index().String().ValuesFunc(func(g *jen.Group) {
		for _, c := range cols {
			g.Lit(c.Name)
		}
	})
}

func described(comment string) []jen.Code {
	if comment == "" {
		return nil
	}
	return []jen.Code{jen.Qual(schemaPkg, "Described").Call(jen.Lit(comment))}
}

func column(c *expr.Column) (jen.Code, error) {
	info, err := typeInfo(c.Info)
	if err != nil {
		return nil, err
	}
	args := []jen.Code{jen.Lit(c.Name), info}
	if c.Identity {
		args = append(args, jen.Qual(schemaPkg, "Identity").Call())
	}
	if c.Default != nil {
		v, err := literal(c.Info, c.Default)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		args = append(args, jen.Qual(schemaPkg, "Default").Call(v))
	}
	if c.DefaultSQL != "" {
		args = append(args, jen.Qual(schemaPkg, "DefaultSQL").Call(jen.Lit(c.DefaultSQL)))
	}
	if c.Comment != "" {
		args = append(args, jen.Qual(schemaPkg, "Comment").Call(jen.Lit(c.Comment)))
	}
	return jen.Id("b").Dot("Column").Call(args...), nil
}

// typeInfo returns the expression of a type info.
func typeInfo(info field.TypeInfo) (jen.Code, error) {
	id, ok := typeIdents[info.Type]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", info.Type)
	}
	if info.Enum != nil {
		if len(info.Enum.Names) == 0 {
			return nil, fmt.Errorf("enumeration %s has a custom converter", info)
		}
		call := jen.Qual(fieldPkg, "NamedEnum").CallFunc(func(g *jen.Group) {
			g.Qual(fieldPkg, id)
			for _, n := range info.Enum.Names {
				g.Lit(n)
			}
		})
		if info.Nullable {
			call = call.Dot("Null").Call()
		}
		return call, nil
	}
	return jen.Qual(fieldPkg, "TypeInfo").Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Type")] = jen.Qual(fieldPkg, id)
		if info.Nullable {
			d[jen.Id("Nullable")] = jen.True()
		}
		if info.Size != 0 {
			d[jen.Id("Size")] = jen.Lit(info.Size)
		}
		if info.Precision != 0 {
			d[jen.Id("Precision")] = jen.Lit(int(info.Precision))
		}
		if info.Scale != 0 {
			d[jen.Id("Scale")] = jen.Lit(int(info.Scale))
		}
		if info.Unicode {
			d[jen.Id("Unicode")] = jen.True()
		}
		if info.Charset != "" {
			d[jen.Id("Charset")] = jen.Lit(info.Charset)
		}
		if info.Collation != "" {
			d[jen.Id("Collation")] = jen.Lit(info.Collation)
		}
	})), nil
}

// literal returns a Go literal of a default value. Values without a Go
// literal form are written as text and converted when the column is
// registered.
func literal(info field.TypeInfo, v any) (jen.Code, error) {
	if info.Enum != nil {
		b, err := field.Backing(info, v)
		if err != nil {
			return nil, err
		}
		if v, err = field.FromBacking(info, b); err != nil {
			return nil, err
		}
	}
	if r, ok := v.(rune); ok && info.Type == field.TypeChar {
		return jen.Lit(string(r)), nil
	}
	switch v := v.(type) {
	case bool, string, int64, int32, int16, uint8, float32, float64:
		return jen.Lit(v), nil
	case []byte:
		return jen.Index().Byte().Call(jen.Lit(string(v))), nil
	case time.Time:
		if info.Type == field.TypeDate {
			return jen.Lit(v.Format(time.DateOnly)), nil
		}
		return jen.Lit(v.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return jen.Lit(v.String()), nil
	default:
		return nil, fmt.Errorf("default %v of type %T has no literal form", v, v)
	}
}

// ModelsFile returns the Go file building every root model and attaching
// the foreign keys between them.
func ModelsFile(pkg, header string, roots []*schema.Model) (*jen.File, error) {
	f := jen.NewFile(pkg)
	if header != "" {
		f.HeaderComment(header)
	}
	var (
		body []jen.Code
		ids  = make(map[*schema.Model]jen.Code)
	)
	for _, root := range roots {
		v := "m" + pascal(root.Name())
		body = append(body,
			jen.List(jen.Id(v), jen.Err()).Op(":=").Id("New"+pascal(root.Name())).Call(),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		)
		for _, m := range root.Hierarchy() {
			if m == root {
				ids[m] = jen.Id(v)
				continue
			}
			ids[m] = jen.Id("find").Call(jen.Id(v), jen.Lit(m.Name()))
		}
	}
	for _, root := range roots {
		for _, m := range root.Hierarchy() {
			for _, fk := range m.ForeignKeys() {
				ref, ok := ids[fk.RefModel]
				if !ok {
					return nil, NewGenerationError("go", "models.go", fmt.Sprintf("foreign key %s references model %s outside the generated set", fk.Name, fk.RefModel.Name()), nil)
				}
				body = append(body, jen.If(
					jen.Err().Op(":=").Add(ids[m]).Dot("AddForeignKey").Call(foreignKey(fk, ids[m], ref)),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Return(jen.Nil(), jen.Err())))
			}
		}
	}
	body = append(body, jen.Return(jen.Index().Op("*").Qual(schemaPkg, "Model").ValuesFunc(func(g *jen.Group) {
		for _, root := range roots {
			g.Add(ids[root])
		}
	}), jen.Nil()))
	f.Comment("Models returns the root models, with the foreign keys between them.")
	f.Func().Id("Models").Params().Params(jen.Index().Op("*").Qual(schemaPkg, "Model"), jen.Error()).Block(body...)
	f.Func().Id("find").Params(jen.Id("root").Op("*").Qual(schemaPkg, "Model"), jen.Id("name").String()).Op("*").Qual(schemaPkg, "Model").Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("m")).Op(":=").Range().Id("root").Dot("Hierarchy").Call()).Block(
			jen.If(jen.Id("m").Dot("Name").Call().Op("==").Id("name")).Block(jen.Return(jen.Id("m"))),
		),
		jen.Return(jen.Nil()),
	)
	return f, nil
}

func foreignKey(fk *schema.ForeignKey, m, ref jen.Code) jen.Code {
	cols := func(owner jen.Code, cs []*expr.Column) jen.Code {
		return jen.Index().Op("*").Qual(exprPkg, "Column").ValuesFunc(func(g *jen.Group) {
			for _, c := range cs {
				g.Add(owner).Dot("Column").Call(jen.Lit(c.Name))
			}
		})
	}
	return jen.Op("&").Qual(schemaPkg, "ForeignKey").Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Name")] = jen.Lit(fk.Name)
		d[jen.Id("Columns")] = cols(m, fk.Columns)
		d[jen.Id("RefModel")] = ref
		d[jen.Id("RefColumns")] = cols(ref, fk.RefColumns)
		if fk.OnDelete != "" {
			d[jen.Id("OnDelete")] = jen.Qual(schemaPkg, "CascadeAction").Call(jen.Lit(string(fk.OnDelete)))
		}
		if fk.OnUpdate != "" {
			d[jen.Id("OnUpdate")] = jen.Qual(schemaPkg, "CascadeAction").Call(jen.Lit(string(fk.OnUpdate)))
		}
		if fk.Comment != "" {
			d[jen.Id("Comment")] = jen.Lit(fk.Comment)
		}
	}))
}

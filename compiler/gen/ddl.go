package gen

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/schema"
)

// DDL returns the script creating the tables of models and their
// descendants. Referenced tables are created before the tables that
// reference them.
func DDL(ctx context.Context, d *sql.Dialect, header string, models ...*schema.Model) ([]byte, error) {
	var stmts []sql.Statement
	for _, m := range creationOrder(models) {
		stmts = append(stmts, sql.DDL(m, false)...)
	}
	compiled, err := sql.CompileAll(ctx, d, stmts, sql.WithIndent("\t"))
	if err != nil {
		return nil, NewGenerationError("ddl", ddlFile(d), "compile statements", err)
	}
	var b bytes.Buffer
	for line := range strings.SplitSeq(header, "\n") {
		b.WriteString("-- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("-- Dialect: ")
	b.WriteString(cases.Title(language.English).String(d.Name()))
	b.WriteString("\n\n")
	for _, c := range compiled {
		b.WriteString(c.SQL)
		b.WriteString(";\n\n")
	}
	return b.Bytes(), nil
}

func ddlFile(d *sql.Dialect) string {
	return "schema_" + d.Name() + ".sql"
}

// creationOrder returns the models of the hierarchies of roots with every
// model placed after its parent and after the models its foreign keys
// reference. Self references and cycles keep the first visit order.
func creationOrder(roots []*schema.Model) []*schema.Model {
	var (
		order []*schema.Model
		state = make(map[*schema.Model]int)
	)
	var visit func(*schema.Model)
	visit = func(m *schema.Model) {
		if state[m] != 0 {
			return
		}
		state[m] = 1
		if p := m.Parent(); p != nil {
			visit(p.Parent)
		}
		for _, fk := range m.ForeignKeys() {
			visit(fk.RefModel)
		}
		state[m] = 2
		order = append(order, m)
	}
	for _, root := range roots {
		for _, m := range root.Hierarchy() {
			visit(m)
		}
	}
	return order
}

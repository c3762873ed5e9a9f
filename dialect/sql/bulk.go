package sql

import (
	"strconv"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// PayloadFormat is the encoding of a bulk payload.
type PayloadFormat uint8

// Payload formats.
const (
	PayloadJSON PayloadFormat = iota
	PayloadXML
)

func (f PayloadFormat) String() string {
	if f == PayloadXML {
		return "xml"
	}
	return "json"
}

// Names used by bulk payload sources.
const (
	BulkAlias     = "sys_bulk_source"
	OrdinalColumn = "sys_dataset_ordinal"
	XMLRoot       = "root"
	XMLRow        = "row"
)

// PayloadColumn returns the positional key of the i-th payload column.
func PayloadColumn(i int) string {
	return "col_" + strconv.Itoa(i)
}

// BulkSource is a table-valued source reading rows out of a JSON or XML
// payload bound as a single parameter. Its columns are the positional
// payload columns followed by the ordinal column.
type BulkSource struct {
	format  PayloadFormat
	payload *expr.Param
	infos   []field.TypeInfo
	cols    []*expr.Column
	as      string
}

// Bulk returns a source reading payload, whose rows hold values of the
// given types. Binary values travel as hexadecimal text.
func Bulk(format PayloadFormat, payload string, infos ...field.TypeInfo) *BulkSource {
	s := &BulkSource{
		format:  format,
		payload: expr.NewParam("payload", field.String(0), payload),
		infos:   infos,
		as:      BulkAlias,
	}
	for i, info := range infos {
		if info.Type == field.TypeBytes {
			info = field.String(0)
		}
		info.Enum = nil
		info.Nullable = true
		s.cols = append(s.cols, column(s, PayloadColumn(i), info, i))
	}
	s.cols = append(s.cols, column(s, OrdinalColumn, field.Int64, len(infos)))
	return s
}

// As sets the alias of the source.
func (s *BulkSource) As(alias string) *BulkSource {
	s.as = alias
	return s
}

// Format returns the payload format.
func (s *BulkSource) Format() PayloadFormat { return s.format }

// Payload returns the parameter holding the payload.
func (s *BulkSource) Payload() *expr.Param { return s.payload }

// Alias implements the Source interface.
func (s *BulkSource) Alias() string { return s.as }

// Exposes implements the Source interface.
func (s *BulkSource) Exposes(t expr.Table) bool { return t == expr.Table(s) }

// TableName implements the expr.Table interface.
func (s *BulkSource) TableName() string { return s.as }

// Columns implements the Source and expr.Table interfaces.
func (s *BulkSource) Columns() []*expr.Column { return s.cols }

// Ordinal returns the ordinal column.
func (s *BulkSource) Ordinal() *expr.Column { return s.cols[len(s.cols)-1] }

// Value returns the expression reading the i-th payload value as its
// declared type.
func (s *BulkSource) Value(i int) expr.Expr {
	if s.infos[i].Type == field.TypeBytes {
		return expr.Call(FromHex, s.cols[i])
	}
	return s.cols[i]
}

// bulkSource writes the table-valued construct parsing the payload.
func (b *Builder) bulkSource(s *BulkSource) {
	types := make([]string, len(s.cols))
	for i, c := range s.cols {
		t, err := b.d.ColumnType(c.Name, c.Info)
		if err != nil {
			b.AddError(err)
			return
		}
		types[i] = t.String()
	}
	unsupported := func() {
		b.AddError(rowset.NewNotSupportedError(b.d.name, "bulk transport", s.format.String()))
	}
	switch {
	case b.d.name == dialect.SQLServer && s.format == PayloadJSON:
		b.WriteString("OPENJSON(").Arg(s.payload).WriteString(") WITH (")
		b.Join(len(s.cols), func(i int) { b.Ident(s.cols[i].Name).WriteString(" " + types[i]) })
		b.WriteString(") AS ").Ident(s.as)
	case b.d.name == dialect.SQLServer && s.format == PayloadXML:
		b.WriteString("(SELECT ")
		b.Join(len(s.cols), func(i int) {
			b.WriteString("r.value('(" + s.cols[i].Name + ")[1]', '" + types[i] + "') AS ").Ident(s.cols[i].Name)
		})
		b.WriteString(" FROM (SELECT CAST(").Arg(s.payload).WriteString(" AS XML) AS doc) AS x")
		b.WriteString(" CROSS APPLY x.doc.nodes('/" + XMLRoot + "/" + XMLRow + "') AS t(r)) AS ").Ident(s.as)
	case b.d.name == dialect.MySQL && s.format == PayloadJSON:
		b.WriteString("JSON_TABLE(").Arg(s.payload).WriteString(", '$[*]' COLUMNS (")
		b.Join(len(s.cols), func(i int) {
			b.Ident(s.cols[i].Name).WriteString(" " + types[i] + " PATH '$." + s.cols[i].Name + "'")
		})
		b.WriteString(")) AS ").Ident(s.as)
	case b.d.name == dialect.Postgres && s.format == PayloadJSON:
		b.WriteString("json_to_recordset(").Arg(s.payload).WriteString("::json) AS ").Ident(s.as).WriteByte('(')
		b.Join(len(s.cols), func(i int) { b.Ident(s.cols[i].Name).WriteString(" " + types[i]) })
		b.WriteByte(')')
	case b.d.name == dialect.Postgres && s.format == PayloadXML:
		b.WriteString("XMLTABLE('/" + XMLRoot + "/" + XMLRow + "' PASSING CAST(").Arg(s.payload).WriteString(" AS XML) COLUMNS ")
		b.Join(len(s.cols), func(i int) {
			b.Ident(s.cols[i].Name).WriteString(" " + types[i] + " PATH '" + s.cols[i].Name + "'")
		})
		b.WriteString(") AS ").Ident(s.as)
	case b.d.name == dialect.SQLite && s.format == PayloadJSON:
		b.WriteString("(SELECT ")
		b.Join(len(s.cols), func(i int) {
			b.WriteString("json_extract(value, '$." + s.cols[i].Name + "') AS ").Ident(s.cols[i].Name)
		})
		b.WriteString(" FROM json_each(").Arg(s.payload).WriteString(")) AS ").Ident(s.as)
	default:
		unsupported()
	}
}

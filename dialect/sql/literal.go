package sql

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	// Fast path: if no escaping needed, return as-is
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	// Escape backslashes first, then single quotes
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// quoteString returns a string literal of the dialect.
func (d *Dialect) quoteString(s string, national bool) string {
	if d.name == dialect.MySQL {
		s = escapeStringValue(s)
	} else {
		s = strings.ReplaceAll(s, "'", "''")
	}
	if national && d.name == dialect.SQLServer {
		return "N'" + s + "'"
	}
	return "'" + s + "'"
}

// nullValue reports if v is one of the null sentinels: nil, a nil pointer,
// or a driver.Valuer reporting NULL.
func nullValue(v any) (any, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		if err != nil {
			return nil, false, err
		}
		if dv == nil {
			return nil, true, nil
		}
		return dv, false, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true, nil
		}
		return nullValue(rv.Elem().Interface())
	}
	return v, false, nil
}

// backing converts v into the canonical value of the backing type of info.
func backing(info field.TypeInfo, v any) (any, error) {
	v, isNull, err := nullValue(v)
	if err != nil || isNull {
		return nil, err
	}
	return field.Backing(info.Null(), v)
}

// Literal renders v as an inline literal of the given logical type.
// Enumeration values are rendered through their backing type.
func (d *Dialect) Literal(info field.TypeInfo, v any) (string, error) {
	if _, err := d.Type(info); err != nil {
		return "", err
	}
	orig := v
	v, err := backing(info, v)
	if err != nil {
		return "", rowset.NewConversionError("", orig, err)
	}
	if v == nil {
		return "NULL", nil
	}
	switch v := v.(type) {
	case bool:
		switch {
		case d.name == dialect.Postgres && v:
			return "TRUE", nil
		case d.name == dialect.Postgres:
			return "FALSE", nil
		case v:
			return "1", nil
		}
		return "0", nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		if info.Type == field.TypeChar {
			return d.quoteString(string(v), info.Unicode), nil
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case string:
		return d.quoteString(v, info.Unicode), nil
	case []byte:
		h := strings.ToUpper(hex.EncodeToString(v))
		switch d.name {
		case dialect.SQLServer:
			return "0x" + h, nil
		case dialect.Postgres:
			return `'\x` + h + `'::bytea`, nil
		}
		return "X'" + h + "'", nil
	case uuid.UUID:
		return "'" + v.String() + "'", nil
	case time.Time:
		if info.Type == field.TypeDate {
			return "'" + v.Format(time.DateOnly) + "'", nil
		}
		return "'" + v.Format("2006-01-02 15:04:05.999999") + "'", nil
	}
	return "", rowset.NewConversionError("", v, fmt.Errorf("no literal form for %T", v))
}

// Parameter converts v into the driver value bound for a parameter of the
// given logical type. Null sentinels (nil, nil pointers, invalid sql.Null*
// values) become nil.
func (d *Dialect) Parameter(info field.TypeInfo, v any) (driver.Value, error) {
	if _, err := d.Type(info); err != nil {
		return nil, err
	}
	orig := v
	v, err := backing(info, v)
	if err != nil {
		return nil, rowset.NewConversionError("", orig, err)
	}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case uint8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		if info.Type == field.TypeChar {
			return string(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case decimal.Decimal:
		return v.String(), nil
	case uuid.UUID:
		return v.String(), nil
	}
	return v, nil
}

// Definition renders the column definition used in CREATE TABLE.
func (d *Dialect) Definition(c *expr.Column) (string, error) {
	t, err := d.ColumnType(c.Name, c.Info)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteByte(' ')
	if c.Identity && d.name == dialect.SQLite {
		m, ok := c.Table.(*schema.Model)
		if !ok || len(m.PrimaryKey()) != 1 || m.PrimaryKey()[0].Column != c {
			return "", rowset.NewNotSupportedError(d.name, "identity", c.String()+" outside a single column primary key")
		}
		b.WriteString("INTEGER PRIMARY KEY AUTOINCREMENT")
		return d.comment(&b, c.Comment), nil
	}
	b.WriteString(t.String())
	if t.Charset != "" && d.name == dialect.MySQL {
		b.WriteString(" CHARACTER SET " + t.Charset)
	}
	if t.Collation != "" {
		if d.name == dialect.Postgres {
			b.WriteString(" COLLATE " + d.Quote(t.Collation))
		} else {
			b.WriteString(" COLLATE " + t.Collation)
		}
	}
	if c.Identity {
		switch d.name {
		case dialect.SQLServer:
			b.WriteString(" IDENTITY(1,1)")
		case dialect.Postgres:
			b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		}
	}
	if c.Info.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	switch {
	case c.DefaultSQL != "":
		b.WriteString(" DEFAULT (" + c.DefaultSQL + ")")
	case c.Default != nil:
		lit, err := d.Literal(c.Info, c.Default)
		if err != nil {
			return "", err
		}
		b.WriteString(" DEFAULT " + lit)
	}
	if c.Identity && d.name == dialect.MySQL {
		b.WriteString(" AUTO_INCREMENT")
	}
	return d.comment(&b, c.Comment), nil
}

// comment appends a vendor comment to a definition.
func (d *Dialect) comment(b *strings.Builder, text string) string {
	if text != "" {
		if d.name == dialect.MySQL {
			b.WriteString(" COMMENT " + d.quoteString(text, false))
		} else {
			b.WriteString(" /* " + strings.ReplaceAll(text, "*/", "* /") + " */")
		}
	}
	return b.String()
}

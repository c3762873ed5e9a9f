package bulk

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dataset"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// Text layouts of temporal payload values.
const (
	TimeLayout = "2006-01-02T15:04:05.999999999"
	DateLayout = "2006-01-02"
)

// Record is one decoded payload row.
type Record struct {
	Ordinal int64
	Values  []any
}

// Encode serializes the rows of store in main ordinal order. The i-th
// column is written under the key col_i and the main ordinal of the row is
// written last.
func Encode(format sql.PayloadFormat, store *dataset.MainStore, cols []*expr.Column) (string, error) {
	for _, c := range cols {
		if !store.Model().Owns(c) {
			return "", rowset.NewSchemaError(store.Model().Name(), fmt.Sprint(c), "column does not belong to the model")
		}
	}
	var (
		buf  bytes.Buffer
		errs []error
		wire = make([]any, len(cols))
	)
	switch format {
	case sql.PayloadJSON:
		buf.WriteByte('[')
	case sql.PayloadXML:
		buf.WriteString("<" + sql.XMLRoot + ">")
	default:
		return "", fmt.Errorf("bulk: unknown payload format %d", format)
	}
	for r := range store.Rows() {
		for i, c := range cols {
			v, err := wireValue(c.Info, r.Value(c))
			if err != nil {
				errs = append(errs, rowset.NewConversionError(c.String(), r.Value(c), err))
			}
			wire[i] = v
		}
		if len(errs) > 0 {
			continue
		}
		var err error
		if format == sql.PayloadJSON {
			err = writeJSON(&buf, r.MainOrdinal(), wire)
		} else {
			err = writeXML(&buf, r.MainOrdinal(), wire)
		}
		if err != nil {
			return "", err
		}
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return "", err
	}
	if format == sql.PayloadJSON {
		buf.WriteByte(']')
	} else {
		buf.WriteString("</" + sql.XMLRoot + ">")
	}
	return buf.String(), nil
}

// wireValue returns the payload form of a canonical value: nil, a bool,
// a number or text. Binary values are hexadecimal, times are written in
// UTC without a zone.
func wireValue(info field.TypeInfo, v any) (any, error) {
	w, err := field.Wire(info, v)
	if err != nil || w == nil {
		return w, err
	}
	switch w := w.(type) {
	case []byte:
		return hex.EncodeToString(w), nil
	case time.Time:
		if info.Type == field.TypeDate {
			return w.UTC().Format(DateLayout), nil
		}
		return w.UTC().Format(TimeLayout), nil
	}
	return w, nil
}

// writeJSON writes one row object. Keys are written in column order, with
// the ordinal last.
func writeJSON(buf *bytes.Buffer, ordinal int, values []any) error {
	if buf.Len() > 1 {
		buf.WriteByte(',')
	}
	buf.WriteByte('{')
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("bulk: encode %s: %w", sql.PayloadColumn(i), err)
		}
		buf.WriteString(`"` + sql.PayloadColumn(i) + `":`)
		buf.Write(b)
		buf.WriteByte(',')
	}
	buf.WriteString(`"` + sql.OrdinalColumn + `":` + strconv.Itoa(ordinal) + "}")
	return nil
}

// writeXML writes one row element. Null values are omitted.
func writeXML(buf *bytes.Buffer, ordinal int, values []any) error {
	buf.WriteString("<" + sql.XMLRow + ">")
	for i, v := range values {
		if v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("bulk: encode %s: %w", sql.PayloadColumn(i), err)
		}
		name := sql.PayloadColumn(i)
		buf.WriteString("<" + name + ">")
		if err := xml.EscapeText(buf, []byte(s)); err != nil {
			return err
		}
		buf.WriteString("</" + name + ">")
	}
	buf.WriteString("<" + sql.OrdinalColumn + ">" + strconv.Itoa(ordinal) + "</" + sql.OrdinalColumn + ">")
	buf.WriteString("</" + sql.XMLRow + ">")
	return nil
}

type xmlDocument struct {
	XMLName xml.Name `xml:"root"`
	Rows    []xmlRow `xml:"row"`
}

type xmlRow struct {
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Decode parses a payload holding values of the given types. Records are
// returned ordered by their ordinal, whatever their order in the payload.
func Decode(format sql.PayloadFormat, payload string, infos ...field.TypeInfo) ([]Record, error) {
	var (
		raws []map[string]any
		err  error
	)
	switch format {
	case sql.PayloadJSON:
		raws, err = parseJSON(payload)
	case sql.PayloadXML:
		raws, err = parseXML(payload)
	default:
		err = fmt.Errorf("bulk: unknown payload format %d", format)
	}
	if err != nil {
		return nil, err
	}
	var (
		recs = make([]Record, 0, len(raws))
		errs []error
	)
	for _, raw := range raws {
		ord, ok := raw[sql.OrdinalColumn]
		if !ok {
			return nil, fmt.Errorf("bulk: payload row without %s", sql.OrdinalColumn)
		}
		n, err := cast.ToInt64E(ord)
		if err != nil {
			return nil, fmt.Errorf("bulk: invalid ordinal %v: %w", ord, err)
		}
		rec := Record{Ordinal: n, Values: make([]any, len(infos))}
		for i, info := range infos {
			key := sql.PayloadColumn(i)
			v, err := unwire(info, raw[key])
			if err != nil {
				errs = append(errs, rowset.NewConversionError(key, raw[key], err))
				continue
			}
			rec.Values[i] = v
		}
		recs = append(recs, rec)
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	slices.SortStableFunc(recs, func(a, b Record) int {
		switch {
		case a.Ordinal < b.Ordinal:
			return -1
		case a.Ordinal > b.Ordinal:
			return 1
		}
		return 0
	})
	return recs, nil
}

func parseJSON(payload string) ([]map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var raws []map[string]any
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("bulk: decode json payload: %w", err)
	}
	for _, raw := range raws {
		for k, v := range raw {
			if n, ok := v.(json.Number); ok {
				raw[k] = n.String()
			}
		}
	}
	return raws, nil
}

func parseXML(payload string) ([]map[string]any, error) {
	var doc xmlDocument
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("bulk: decode xml payload: %w", err)
	}
	raws := make([]map[string]any, len(doc.Rows))
	for i, r := range doc.Rows {
		raw := make(map[string]any, len(r.Fields))
		for _, f := range r.Fields {
			raw[f.XMLName.Local] = f.Value
		}
		raws[i] = raw
	}
	return raws, nil
}

// unwire is the inverse of wireValue.
func unwire(info field.TypeInfo, v any) (any, error) {
	if s, ok := v.(string); ok {
		var err error
		switch info.Type {
		case field.TypeBytes:
			v, err = hex.DecodeString(s)
		case field.TypeTime:
			v, err = time.ParseInLocation(TimeLayout, s, time.UTC)
		case field.TypeDate:
			v, err = time.ParseInLocation(DateLayout, s, time.UTC)
		}
		if err != nil {
			return nil, err
		}
	}
	return field.FromBacking(info, v)
}

// Import decodes a payload and appends its rows to a root store in ordinal
// order, assigning the i-th payload value to the i-th column. Nothing is
// inserted if a value fails to convert.
func Import(store *dataset.MainStore, cols []*expr.Column, format sql.PayloadFormat, payload string) (int, error) {
	m := store.Model()
	infos := make([]field.TypeInfo, len(cols))
	for i, c := range cols {
		if !m.Owns(c) {
			return 0, rowset.NewSchemaError(m.Name(), fmt.Sprint(c), "column does not belong to the model")
		}
		infos[i] = c.Info
	}
	if m.Parent() != nil {
		return 0, rowset.NewStateError("import", "store of a child model is read-only")
	}
	recs, err := Decode(format, payload, infos...)
	if err != nil {
		return 0, err
	}
	rows := make([]*dataset.Row, len(recs))
	var errs []error
	for i, rec := range recs {
		rows[i] = dataset.NewRow(m)
		for j, c := range cols {
			errs = append(errs, rows[i].SetValue(c, rec.Values[j]))
		}
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if err := store.Add(r); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

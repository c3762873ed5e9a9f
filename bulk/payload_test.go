package bulk_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/bulk"
	"github.com/syssam/rowset/dataset"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func itemModel(t testing.TB) *schema.Model {
	t.Helper()
	m, err := schema.Define("Item", schema.TableName("items")).
		Column("id", field.Int64).
		Column("name", field.String(40).Null()).
		Column("data", field.Bytes.Null()).
		Column("placed", field.Date).
		Column("price", field.Decimal(10, 2)).
		Build()
	require.NoError(t, err)
	return m
}

func addItem(t testing.TB, ds *dataset.DataSet, vs map[string]any) *dataset.Row {
	t.Helper()
	r := dataset.NewRow(ds.Model())
	require.NoError(t, r.SetValues(vs))
	require.NoError(t, ds.Root().Add(r))
	return r
}

func TestEncode(t *testing.T) {
	m := itemModel(t)
	ds := dataset.New(m)
	addItem(t, ds, map[string]any{"id": 1, "name": "a", "data": []byte{1, 2}, "placed": "2024-03-01", "price": "1.5"})
	addItem(t, ds, map[string]any{"id": 2, "placed": "2024-03-02", "price": 3})

	js, err := bulk.Encode(sql.PayloadJSON, ds.Root(), m.Columns())
	require.NoError(t, err)
	assert.Equal(t, `[{"col_0":1,"col_1":"a","col_2":"0102","col_3":"2024-03-01","col_4":"1.5","sys_dataset_ordinal":0},`+
		`{"col_0":2,"col_1":null,"col_2":null,"col_3":"2024-03-02","col_4":"3","sys_dataset_ordinal":1}]`, js)

	xs, err := bulk.Encode(sql.PayloadXML, ds.Root(), m.Columns())
	require.NoError(t, err)
	assert.Equal(t, `<root>`+
		`<row><col_0>1</col_0><col_1>a</col_1><col_2>0102</col_2><col_3>2024-03-01</col_3><col_4>1.5</col_4><sys_dataset_ordinal>0</sys_dataset_ordinal></row>`+
		`<row><col_0>2</col_0><col_3>2024-03-02</col_3><col_4>3</col_4><sys_dataset_ordinal>1</sys_dataset_ordinal></row>`+
		`</root>`, xs)

	other := itemModel(t)
	_, err = bulk.Encode(sql.PayloadJSON, ds.Root(), other.Columns())
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
	_, err = bulk.Encode(sql.PayloadFormat(9), ds.Root(), m.Columns())
	assert.Error(t, err)
}

func TestEncodeTimeUTC(t *testing.T) {
	m, err := schema.Define("Event").Column("at", field.Time).Build()
	require.NoError(t, err)
	ds := dataset.New(m)
	r := dataset.NewRow(m)
	at := time.Date(2024, 5, 6, 9, 30, 0, 500, time.FixedZone("X", 2*3600))
	require.NoError(t, r.Set("at", at))
	require.NoError(t, ds.Root().Add(r))

	js, err := bulk.Encode(sql.PayloadJSON, ds.Root(), m.Columns())
	require.NoError(t, err)
	assert.Equal(t, `[{"col_0":"2024-05-06T07:30:00.0000005","sys_dataset_ordinal":0}]`, js)

	recs, err := bulk.Decode(sql.PayloadJSON, js, field.Time)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, at.Equal(recs[0].Values[0].(time.Time)))
}

func TestDecodeOrdersByOrdinal(t *testing.T) {
	payload := `[{"col_0":"b","sys_dataset_ordinal":7},{"col_0":"a","sys_dataset_ordinal":2}]`
	recs, err := bulk.Decode(sql.PayloadJSON, payload, field.String(0))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].Ordinal)
	assert.Equal(t, "a", recs[0].Values[0])
	assert.Equal(t, "b", recs[1].Values[0])

	_, err = bulk.Decode(sql.PayloadJSON, `[{"col_0":"a"}]`, field.String(0))
	assert.Error(t, err)
	_, err = bulk.Decode(sql.PayloadJSON, `[{"col_0":"x","sys_dataset_ordinal":0}]`, field.Int32)
	assert.ErrorIs(t, err, rowset.ErrConversion)
	_, err = bulk.Decode(sql.PayloadXML, `<root><row>`, field.Int32)
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	m := itemModel(t)
	payload := `<root>` +
		`<row><col_0>20</col_0><col_1>a&amp;b</col_1><col_2>ff00</col_2><sys_dataset_ordinal>1</sys_dataset_ordinal></row>` +
		`<row><col_0>10</col_0><sys_dataset_ordinal>0</sys_dataset_ordinal></row>` +
		`</root>`
	ds := dataset.New(m)
	cols := []*expr.Column{m.Column("id"), m.Column("name"), m.Column("data")}
	n, err := bulk.Import(ds.Root(), cols, sql.PayloadXML, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, _ := ds.Root().At(0)
	second, _ := ds.Root().At(1)
	id, _ := first.Get("id")
	assert.Equal(t, int64(10), id)
	name, _ := first.Get("name")
	assert.Nil(t, name)
	name, _ = second.Get("name")
	assert.Equal(t, "a&b", name)
	data, _ := second.Get("data")
	assert.Equal(t, []byte{0xff, 0x00}, data)

	// A failing value rejects the whole payload.
	bad := `[{"col_0":"30","col_1":"ok","col_2":null,"sys_dataset_ordinal":0},{"col_0":"x","col_1":null,"col_2":null,"sys_dataset_ordinal":1}]`
	_, err = bulk.Import(ds.Root(), cols, sql.PayloadJSON, bad)
	assert.ErrorIs(t, err, rowset.ErrConversion)
	assert.Equal(t, 2, ds.Root().Count())
}

func TestPayloadRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	m := itemModel(t)

	roundTrip := func(format sql.PayloadFormat) func(ids []int64, names []string) bool {
		return func(ids []int64, names []string) bool {
			ds := dataset.New(m)
			for i, id := range ids {
				r := dataset.NewRow(m)
				vs := map[string]any{"id": id, "placed": "2024-01-01", "price": decimal.New(id%100000, -2)}
				if i < len(names) {
					vs["name"] = names[i]
				}
				if r.SetValues(vs) != nil || ds.Root().Add(r) != nil {
					return false
				}
			}
			payload, err := bulk.Encode(format, ds.Root(), m.Columns())
			if err != nil {
				return false
			}
			dst := dataset.New(m)
			if _, err := bulk.Import(dst.Root(), m.Columns(), format, payload); err != nil {
				return false
			}
			if dst.Root().Count() != len(ids) {
				return false
			}
			for i := range ids {
				want, _ := ds.Root().At(i)
				got, _ := dst.Root().At(i)
				for _, c := range m.Columns() {
					w, g := want.Value(c), got.Value(c)
					if d, ok := w.(decimal.Decimal); ok {
						if !d.Equal(g.(decimal.Decimal)) {
							return false
						}
						continue
					}
					if !assert.ObjectsAreEqual(w, g) {
						return false
					}
				}
			}
			return true
		}
	}
	names := gen.SliceOf(gen.AlphaString().Map(func(s string) string {
		if len(s) > 40 {
			return s[:40]
		}
		return s
	}))
	properties.Property("json payloads decode to the encoded rows", prop.ForAll(
		roundTrip(sql.PayloadJSON), gen.SliceOf(gen.Int64()), names,
	))
	properties.Property("xml payloads decode to the encoded rows", prop.ForAll(
		roundTrip(sql.PayloadXML), gen.SliceOf(gen.Int64()), names,
	))

	properties.TestingRun(t)
}

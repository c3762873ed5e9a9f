package gen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset/dialect"
)

func TestNewConfig(t *testing.T) {
	c, err := NewConfig(WithTarget("out"), WithPackage("store"), WithDialects(dialect.Postgres))
	require.NoError(t, err)
	assert.Equal(t, DefaultHeader, c.Header)
	assert.Equal(t, "out", c.Target)
	assert.Equal(t, []string{dialect.Postgres}, c.Dialects)
	assert.NoError(t, c.Validate())
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty package", WithPackage("")},
		{"empty target", WithTarget("")},
		{"unknown dialect", WithDialects("oracle")},
		{"negative workers", WithWorkers(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			require.Error(t, err)
			var cerr *ConfigError
			assert.ErrorAs(t, err, &cerr)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	err := (&Config{Dialects: []string{"oracle"}}).Validate()
	require.Error(t, err)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), `"Target"`)
	assert.Contains(t, err.Error(), `"Package"`)
	assert.Contains(t, err.Error(), "oracle")

	assert.NoError(t, (&Config{Target: "out", SkipGo: true}).Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rowsetc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models: models.yaml
target: ./store
package: store
dialects: [sqlite, mysql]
acronyms: [sku]
`), 0o644))

	c, err := LoadConfig(path, WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, "models.yaml", c.Models)
	assert.Equal(t, "./store", c.Target)
	assert.Equal(t, []string{dialect.SQLite, dialect.MySQL}, c.Dialects)
	assert.Equal(t, []string{"sku"}, c.Acronyms)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, DefaultHeader, c.Header)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("boom")
	err := NewGenerationError("format", "order.go", "bad source", cause)
	assert.Equal(t, "rowsetc: format order.go: bad source: boom", err.Error())
	assert.ErrorIs(t, err, ErrGenerate)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConfig)

	assert.Equal(t, "rowsetc: go", NewGenerationError("go", "", "", nil).Error())
	assert.Equal(t, "rowsetc: Workers=-1: workers cannot be negative", NewConfigError("Workers", -1, "workers cannot be negative").Error())
	assert.Equal(t, "rowsetc: Target: missing target directory", NewConfigError("Target", nil, "missing target directory").Error())
}

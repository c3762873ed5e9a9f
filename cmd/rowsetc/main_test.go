package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const models = `
models:
  - name: Customer
    columns:
      - name: id
        type: int64
        identity: true
      - name: name
        type: string
        size: 50
    primary_key: [id]
`

func writeModels(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(models), 0o644))
	return dir, path
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Error(t, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: rowsetc")

	stderr.Reset()
	require.Error(t, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: rowsetc")

	require.NoError(t, run(context.Background(), []string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "commands:")
}

func TestRunDDL(t *testing.T) {
	_, path := writeModels(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"ddl", "-models", path, "-dialect", "sqlite"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `CREATE TABLE "customers"`)

	err = run(context.Background(), []string{"ddl", "-models", path, "-dialect", "oracle"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRunGen(t *testing.T) {
	dir, _ := writeModels(t)
	config := filepath.Join(dir, "rowsetc.yaml")
	require.NoError(t, os.WriteFile(config, []byte("models: models.yaml\ntarget: out\npackage: store\ndialects: [postgres]\n"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"gen", "-config", config}, &stdout, &stderr))
	for _, name := range []string{"schema_postgres.sql", "customer.go", "models.go"} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}
}

func TestRunPlanSQLite(t *testing.T) {
	dir, path := writeModels(t)
	dsn := "file:" + filepath.Join(dir, "app.db")
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(ctx, []string{"plan", "-models", path, "-dsn", dsn}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "customers")

	require.NoError(t, run(ctx, []string{"plan", "-models", path, "-dsn", dsn, "-apply"}, &stdout, &stderr))

	assert.Error(t, run(ctx, []string{"plan", "-models", path}, &stdout, &stderr))
}

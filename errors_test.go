package rowset_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
)

func TestSchemaError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := rowset.NewSchemaError("Order", "total", "duplicate column name")
		assert.Equal(t, "rowset: schema violation on model Order member total: duplicate column name", err.Error())
	})

	t.Run("Cause", func(t *testing.T) {
		cause := errors.New("bad default")
		err := &rowset.SchemaError{Model: "Order", Message: "invalid default value", Cause: cause}
		assert.True(t, errors.Is(err, cause))
		assert.True(t, errors.Is(err, rowset.ErrSchemaViolation))
		assert.Contains(t, err.Error(), "bad default")
	})

	t.Run("IsSchemaError", func(t *testing.T) {
		wrapped := fmt.Errorf("define: %w", rowset.NewSchemaError("A", "", "empty table name"))
		assert.True(t, rowset.IsSchemaError(wrapped))
		assert.False(t, rowset.IsSchemaError(rowset.ErrSchemaViolation))
	})
}

func TestBoundsError(t *testing.T) {
	t.Run("Index", func(t *testing.T) {
		err := rowset.NewBoundsError("insert", 5, 3)
		assert.Equal(t, "rowset: insert: index 5 out of range [0, 3]: index out of range", err.Error())
		assert.True(t, errors.Is(err, rowset.ErrOutOfBounds))
	})

	t.Run("State", func(t *testing.T) {
		err := rowset.NewStateError("attach", "row is already attached")
		assert.Equal(t, "rowset: attach: row is already attached", err.Error())
		assert.True(t, rowset.IsBoundsError(err))
		assert.False(t, errors.Is(err, rowset.ErrSchemaViolation))
	})
}

func TestTypeErrors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := rowset.NewTypeMismatchError("+", "operands must be numeric", "int32", "string")
		assert.Equal(t, "rowset: type mismatch: +(int32, string): operands must be numeric", err.Error())
		assert.True(t, errors.Is(err, rowset.ErrTypeMismatch))
		assert.True(t, rowset.IsTypeMismatch(fmt.Errorf("compile: %w", err)))
	})

	t.Run("TypeMapping", func(t *testing.T) {
		err := &rowset.TypeMappingError{Dialect: "sqlite", Type: "uuid", Column: "id"}
		assert.Equal(t, `rowset: type uuid of column "id" not supported by sqlite`, err.Error())
		assert.True(t, errors.Is(err, rowset.ErrTypeMapping))
		anon := &rowset.TypeMappingError{Dialect: "mysql", Type: "char"}
		assert.Equal(t, "rowset: type char not supported by mysql", anon.Error())
		assert.True(t, rowset.IsTypeMappingError(anon))
	})

	t.Run("NotSupported", func(t *testing.T) {
		err := rowset.NewNotSupportedError("sqlite", "operator", "^")
		assert.Equal(t, `rowset: operator "^" not supported by sqlite`, err.Error())
		assert.True(t, errors.Is(err, rowset.ErrNotSupported))
		assert.True(t, rowset.IsNotSupported(err))
	})

	t.Run("Conversion", func(t *testing.T) {
		cause := errors.New("overflows int16")
		err := rowset.NewConversionError("qty", 70000, cause)
		assert.Equal(t, `rowset: cannot convert 70000 for column "qty": overflows int16`, err.Error())
		assert.True(t, errors.Is(err, rowset.ErrConversion))
		assert.True(t, errors.Is(err, cause))
		assert.True(t, rowset.IsConversionError(err))
	})
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("deadlock")
	err := rowset.NewExecutionError("bulk insert", cause)
	assert.Equal(t, "rowset: bulk insert: deadlock", err.Error())
	assert.True(t, errors.Is(err, rowset.ErrExecution))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, rowset.IsExecutionError(fmt.Errorf("load: %w", err)))
	assert.False(t, rowset.IsCanceled(err))
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rowset.Canceled(ctx.Err())
	assert.True(t, rowset.IsCanceled(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, rowset.ErrExecution))
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		assert.Nil(t, rowset.NewAggregateError())
		assert.Nil(t, rowset.NewAggregateError(nil, nil))
	})

	t.Run("SingleError", func(t *testing.T) {
		single := rowset.NewSchemaError("A", "x", "duplicate column name")
		assert.Equal(t, error(single), rowset.NewAggregateError(nil, single, nil))
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		err1 := rowset.NewSchemaError("A", "x", "duplicate column name")
		err2 := rowset.NewStateError("seal", "model is sealed")
		err := rowset.NewAggregateError(err1, err2)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "[2] rowset: seal: model is sealed")
		assert.True(t, errors.Is(err, rowset.ErrSchemaViolation))
		assert.True(t, errors.Is(err, rowset.ErrOutOfBounds))
		assert.False(t, errors.Is(err, rowset.ErrTypeMismatch))
	})
}

func BenchmarkErrors(b *testing.B) {
	b.Run("NewSchemaError", func(b *testing.B) {
		for b.Loop() {
			_ = rowset.NewSchemaError("Order", "total", "duplicate column name")
		}
	})

	b.Run("IsTypeMismatch", func(b *testing.B) {
		err := fmt.Errorf("wrap: %w", rowset.NewTypeMismatchError("+", "", "int32", "string"))
		for b.Loop() {
			_ = errors.Is(err, rowset.ErrTypeMismatch)
		}
	})
}

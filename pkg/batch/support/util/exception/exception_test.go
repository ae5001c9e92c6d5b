package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("db", "failed to connect", originalErr)

	assert.Equal(t, "db", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.Contains(t, be.Error(), "[db] failed to connect: db connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("parser", "file %s has %d lines", "a.txt", 10)
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, "[parser] file a.txt has 10 lines", be1.Error())

	cause := errors.New("io error")
	be2 := exception.NewBatchErrorf("loader", "staging %s failed", "wx_data", cause)
	assert.Equal(t, cause, be2.Unwrap())
	assert.Equal(t, "staging wx_data failed", be2.Message)
}

func TestParseError(t *testing.T) {
	cause := errors.New(`strconv.Atoi: parsing "x": invalid syntax`)
	err := exception.NewParseError("wx/USC001.txt", 3, "invalid max_temp", cause)

	assert.Equal(t, "wx/USC001.txt", err.File)
	assert.Equal(t, 3, err.Line)
	assert.True(t, exception.IsParseError(err))
	assert.False(t, exception.IsValidationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wx/USC001.txt:3: invalid max_temp", exception.ExtractErrorMessage(err))

	wrapped := fmt.Errorf("ingest weather: %w", err)
	var pe *exception.ParseError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.True(t, exception.IsBatchError(wrapped))
}

func TestParseErrorWholeFile(t *testing.T) {
	err := exception.NewParseError("yld/US_corn_grain_yield.txt", 0, "cannot open", nil)
	assert.Equal(t, "yld/US_corn_grain_yield.txt: cannot open", err.Message)
	assert.ErrorIs(t, err, exception.ErrParse)
}

func TestClassification(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	conn := exception.NewConnectionError("loader", "database unreachable", cause)
	assert.True(t, exception.IsConnectionError(conn))
	assert.True(t, exception.IsTemporary(conn))
	assert.ErrorIs(t, conn, cause)

	schema := exception.NewSchemaError("migration", "failed to apply migrations", errors.New("syntax error"))
	assert.True(t, exception.IsSchemaError(schema))
	assert.False(t, exception.IsConnectionError(schema))

	v := exception.NewValidationError("limit", "limit must be a non-negative integer")
	assert.True(t, exception.IsValidationError(v))
	assert.Equal(t, "limit", v.Field)
	assert.Equal(t, "limit must be a non-negative integer", exception.ExtractErrorMessage(v))
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(errors.New("i/o timeout")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error at or near")))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	be := exception.NewBatchError("query", "count failed", errors.New("boom"))
	assert.Equal(t, "count failed", exception.ExtractErrorMessage(fmt.Errorf("wrap: %w", be)))
}

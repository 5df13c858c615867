package seeding

import (
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

func TestColumnType(t *testing.T) {
	tests := []struct {
		in   types.IndexType
		want string
	}{
		{types.IndexTypeString, "VARCHAR(255)"},
		{types.IndexTypeInt, "BIGINT"},
		{types.IndexTypeBool, "BOOLEAN"},
		{types.IndexTypeDate, "TIMESTAMPTZ"},
		{types.IndexTypeUUID, "UUID"},
		{types.IndexTypeStringList, "TEXT[]"},
		{types.IndexTypeUUIDList, "UUID[]"},
		{types.IndexTypeFullText, "TSVECTOR"},
	}
	for _, tt := range tests {
		got, ok := columnType(tt.in)
		assert.True(t, ok, string(tt.in))
		assert.Equal(t, tt.want, got)
	}

	_, ok := columnType(types.IndexType("geometry"))
	assert.False(t, ok)
}

func TestIsDuplicateColumn(t *testing.T) {
	assert.True(t, isDuplicateColumn(&pgconn.PgError{Code: "42701"}))
	assert.False(t, isDuplicateColumn(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateColumn(errors.New("other")))
	assert.False(t, isDuplicateColumn(nil))
}

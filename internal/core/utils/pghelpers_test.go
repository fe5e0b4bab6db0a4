package utils

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	assert.Equal(t, "", FromString(pgtype.Text{}))
	assert.Equal(t, "alice", FromString(pgtype.Text{String: "alice", Valid: true}))
}

func TestFromInt8(t *testing.T) {
	assert.Equal(t, int64(0), FromInt8(pgtype.Int8{}))
	assert.Equal(t, int64(12), FromInt8(pgtype.Int8{Int64: 12, Valid: true}))
}

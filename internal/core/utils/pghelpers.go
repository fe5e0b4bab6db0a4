package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// FromString converts a pgtype.Text to a domain's primitive string.
// A NULL value is converted to an empty string ("").
func FromString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// FromInt8 converts a nullable BIGINT column to an id. NULL becomes 0.
func FromInt8(v pgtype.Int8) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}

package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldTranslationRoundTrips(t *testing.T) {
	for _, ext := range ExternalFields() {
		col, ok := ColumnFor(ext)
		require.True(t, ok, "no column for %q", ext)

		back, ok := ExternalFor(col)
		require.True(t, ok, "no external name for column %q", col)
		require.Equal(t, ext, back)
	}
}

func TestFieldTranslationIsBijective(t *testing.T) {
	seen := make(map[string]string)
	for _, ext := range ExternalFields() {
		col, _ := ColumnFor(ext)
		prev, dup := seen[col]
		require.False(t, dup, "column %q mapped from both %q and %q", col, prev, ext)
		seen[col] = ext
	}
}

func TestFieldTranslationCoversSchema(t *testing.T) {
	columns := []string{
		"id", "item", "quantity", "status",
		"requested_by", "requested_at",
		"processed_by", "processed_at",
		"refilled_by", "refilled_at",
		"no_stock_by", "no_stock_at",
		"refiller_input", "no_stock_input", "processor_input",
	}
	for _, col := range columns {
		_, ok := ExternalFor(col)
		require.True(t, ok, "column %q has no external name", col)
	}
	require.Len(t, ExternalFields(), len(columns))
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	_, ok := ColumnFor("deletedAt")
	require.False(t, ok)

	_, ok = ExternalFor("deleted_at")
	require.False(t, ok)
}

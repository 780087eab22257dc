package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

func TestWriteCSV(t *testing.T) {
	requestedAt := time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC)
	processedAt := time.Date(2026, 3, 10, 15, 20, 0, 0, time.UTC)
	processedBy := "CARLO"

	reqs := []models.RefillRequest{
		{
			ID:          1741615500000,
			Item:        "Arabica Beans 1kg",
			Quantity:    6,
			Status:      models.StatusOnProcess,
			RequestedBy: "HAROLD",
			RequestedAt: &requestedAt,
			ProcessedBy: &processedBy,
			ProcessedAt: &processedAt,
		},
		{
			ID:       1741615500001,
			Item:     "Paper Cups 12oz",
			Quantity: 200,
			Status:   models.StatusRequested,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, reqs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])

	assert.Equal(t, []string{
		"1741615500000",
		"Arabica Beans 1kg",
		"6",
		"ON_PROCESS",
		"HAROLD",
		"Mar 10, 2026, 2:05 PM",
		"CARLO",
		"Mar 10, 2026, 3:20 PM",
		"N/A", "N/A", "N/A", "N/A",
	}, records[1])

	// Fully unattributed row keeps every optional column as N/A
	assert.Equal(t, "N/A", records[2][4])
	assert.Equal(t, "N/A", records[2][5])
	assert.Equal(t, "N/A", records[2][11])
}

func TestWriteCSVEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Header, records[0])
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func historyFixture() []models.RefillRequest {
	at := func(day int) *time.Time {
		t := time.Date(2026, 3, day, 10, 30, 0, 0, time.UTC)
		return &t
	}
	return []models.RefillRequest{
		{ID: 1001, Item: "Arabica Beans 1kg", Quantity: 6, Status: models.StatusRequested, RequestedBy: "HAROLD", RequestedAt: at(10)},
		{ID: 1002, Item: "Paper Cups 12oz", Quantity: 200, Status: models.StatusOnProcess, RequestedBy: "LENI", RequestedAt: at(11), ProcessedBy: ptr("CARLO")},
		{ID: 1003, Item: "Oat Milk 1L", Quantity: 12, Status: models.StatusRefilling, RequestedBy: "HAROLD", RequestedAt: at(12), ProcessedBy: ptr("CARLO")},
		{ID: 1004, Item: "Arabica Beans 1kg", Quantity: 3, Status: models.StatusNoStock, RequestedBy: "LENI", RequestedAt: at(13), ProcessedBy: ptr("MARA")},
	}
}

func TestActiveQueueExcludesResolved(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := newTestService(t, repo, nil)
	repo.On("List", mock.Anything).Return(historyFixture(), nil)

	active := svc.ActiveQueue(context.Background())

	assert.Len(t, active, 2)
	for _, req := range active {
		assert.False(t, req.Status.Resolved(), "resolved request %d in active queue", req.ID)
	}
}

func TestFilterHistoryByStatus(t *testing.T) {
	out := FilterHistory(historyFixture(), HistoryFilter{Status: models.StatusNoStock})

	assert.Len(t, out, 1)
	assert.Equal(t, int64(1004), out[0].ID)
}

func TestFilterHistorySearch(t *testing.T) {
	cases := []struct {
		name   string
		search string
		want   []int64
	}{
		{"item substring", "beans", []int64{1001, 1004}},
		{"case insensitive", "OAT", []int64{1003}},
		{"id substring", "1002", []int64{1002}},
		{"requester", "harold", []int64{1001, 1003}},
		{"processor", "carlo", []int64{1002, 1003}},
		{"no match", "espresso machine", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := FilterHistory(historyFixture(), HistoryFilter{Search: tc.search})
			ids := make([]int64, 0, len(out))
			for _, req := range out {
				ids = append(ids, req.ID)
			}
			if tc.want == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tc.want, ids)
			}
		})
	}
}

func TestFilterHistoryDateRangeIsInclusive(t *testing.T) {
	start := time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 30, 0, 0, time.UTC)

	// Bounds widen to whole days, so requests from the 11th and 12th match
	// even though the raw instants would exclude both.
	out := FilterHistory(historyFixture(), HistoryFilter{Start: &start, End: &end})

	assert.Len(t, out, 2)
	assert.Equal(t, int64(1002), out[0].ID)
	assert.Equal(t, int64(1003), out[1].ID)
}

func TestFilterHistoryComposesWithAnd(t *testing.T) {
	start := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)

	out := FilterHistory(historyFixture(), HistoryFilter{
		Status: models.StatusNoStock,
		Search: "beans",
		Start:  &start,
		End:    &end,
	})

	assert.Len(t, out, 1)
	assert.Equal(t, int64(1004), out[0].ID)
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(historyFixture())

	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 1, counts.Requested)
	assert.Equal(t, 1, counts.OnProcess)
	assert.Equal(t, 1, counts.NoStock)
	assert.Equal(t, 1, counts.Refilling)
}

func TestStatsFallsBackToListWhenCacheDisabled(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := newTestService(t, repo, nil)
	repo.On("List", mock.Anything).Return(historyFixture(), nil)

	counts := svc.Stats(context.Background())

	assert.Equal(t, 4, counts.Total)
	repo.AssertExpectations(t)
}

func TestExportWritesCSVAndCountsIt(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := newTestService(t, repo, nil)
	repo.On("List", mock.Anything).Return(historyFixture(), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), HistoryFilter{}, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 5)

	snap := svc.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Counters[metrics.CounterExportsGenerated])
	assert.Equal(t, int64(1), snap.Timers["export_history"].Count)
}

func TestHistoryDegradesToEmptyOnFailure(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := newTestService(t, repo, nil)
	repo.On("List", mock.Anything).Return(nil, assert.AnError)

	out := svc.History(context.Background(), HistoryFilter{Search: "beans"})

	assert.NotNil(t, out)
	assert.Empty(t, out)
}

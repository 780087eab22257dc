package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/cache"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/export"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// HistoryFilter narrows the full request list. Zero values mean "no
// constraint"; active constraints compose with AND.
type HistoryFilter struct {
	Status models.RequestStatus
	Search string
	Start  *time.Time
	End    *time.Time
}

// StatusCounts aggregates requests per lifecycle stage.
type StatusCounts struct {
	Total     int `json:"total"`
	Requested int `json:"requested"`
	OnProcess int `json:"onProcess"`
	NoStock   int `json:"noStock"`
	Refilling int `json:"refilling"`
}

// ActiveQueue returns the requests the floor still has to act on: resolved
// requests (NO_STOCK, REFILLING) drop out of view but stay stored.
func (s *RequestService) ActiveQueue(ctx context.Context) []models.RefillRequest {
	active := make([]models.RefillRequest, 0)
	for _, req := range s.List(ctx) {
		if !req.Status.Resolved() {
			active = append(active, req)
		}
	}
	s.metrics.SetGauge(metrics.GaugeActiveQueueSize, int64(len(active)))
	return active
}

// History returns the full list narrowed by the given filter.
func (s *RequestService) History(ctx context.Context, filter HistoryFilter) []models.RefillRequest {
	return FilterHistory(s.List(ctx), filter)
}

// Stats returns per-status counts over the full collection, served from
// cache when a fresh snapshot exists.
func (s *RequestService) Stats(ctx context.Context) StatusCounts {
	var counts StatusCounts
	if err := s.cache.Get(ctx, cache.StatsCacheKey, &counts); err == nil {
		return counts
	}

	counts = CountByStatus(s.List(ctx))

	if err := s.cache.Set(ctx, cache.StatsCacheKey, counts, cache.StatsTTL); err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Warn().Err(err).Msg("Failed to cache stats")
	}
	return counts
}

// Export writes the filtered history to w as CSV.
func (s *RequestService) Export(ctx context.Context, filter HistoryFilter, w io.Writer) error {
	txn := s.tracer.StartTransaction("export-history")
	defer s.tracer.EndTransaction(txn)

	start := s.now()
	reqs := s.History(ctx, filter)

	seg := s.tracer.StartSpan("render-csv", txn)
	err := export.WriteCSV(w, reqs)
	seg.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return err
	}

	s.metrics.IncrCounter(metrics.CounterExportsGenerated)
	s.metrics.RecordDuration("export_history", s.now().Sub(start))
	return nil
}

// FilterHistory applies a history filter in memory. Search matches a
// case-insensitive substring of the item, the id, or either requester or
// processor name; the date range is inclusive and widened to whole days.
func FilterHistory(reqs []models.RefillRequest, filter HistoryFilter) []models.RefillRequest {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var start, end time.Time
	if filter.Start != nil {
		start = dayStart(*filter.Start)
	}
	if filter.End != nil {
		end = dayEnd(*filter.End)
	}

	out := make([]models.RefillRequest, 0, len(reqs))
	for _, req := range reqs {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(&req, search) {
			continue
		}
		if filter.Start != nil && (req.RequestedAt == nil || req.RequestedAt.Before(start)) {
			continue
		}
		if filter.End != nil && (req.RequestedAt == nil || req.RequestedAt.After(end)) {
			continue
		}
		out = append(out, req)
	}
	return out
}

// CountByStatus aggregates requests per lifecycle stage.
func CountByStatus(reqs []models.RefillRequest) StatusCounts {
	counts := StatusCounts{Total: len(reqs)}
	for _, req := range reqs {
		switch req.Status {
		case models.StatusRequested:
			counts.Requested++
		case models.StatusOnProcess:
			counts.OnProcess++
		case models.StatusNoStock:
			counts.NoStock++
		case models.StatusRefilling:
			counts.Refilling++
		}
	}
	return counts
}

func matchesSearch(req *models.RefillRequest, search string) bool {
	if strings.Contains(strings.ToLower(req.Item), search) {
		return true
	}
	if strings.Contains(strconv.FormatInt(req.ID, 10), search) {
		return true
	}
	if strings.Contains(strings.ToLower(req.RequestedBy), search) {
		return true
	}
	if req.ProcessedBy != nil && strings.Contains(strings.ToLower(*req.ProcessedBy), search) {
		return true
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/cache"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/messaging"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/notifier"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/search"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/tracing"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/workflow"
)

// ValidationError reports malformed or missing input. The targeted record is
// never partially applied.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError builds a validation failure with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CreateRequestInput is the payload for creating a refill request.
type CreateRequestInput struct {
	Item        string `json:"item"`
	Quantity    int    `json:"quantity"`
	RequestedBy string `json:"requestedBy"`
}

// ImportResult reports per-row outcomes of a bulk import.
type ImportResult struct {
	Succeeded int `json:"success"`
	Failed    int `json:"error"`
}

// ResolvedEvent is published to the ERP events queue when a resolved request
// gets its final attribution.
type ResolvedEvent struct {
	Outcome string                `json:"outcome"`
	Request *models.RefillRequest `json:"request"`
}

// RequestService owns the refill request workflow: creation, sparse updates,
// lifecycle transitions, queue views and bulk deletion. All write failures
// surface to the caller; read failures degrade to empty results so display
// paths stay non-blocking.
type RequestService struct {
	repo    repository.RequestRepository
	idgen   *repository.IDGenerator
	cache   *cache.RedisCache
	search  *search.ElasticClient
	bus     messaging.Client
	notify  notifier.Notifier
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	now     func() time.Time
}

// NewRequestService creates a new request service
func NewRequestService(
	repo repository.RequestRepository,
	idgen *repository.IDGenerator,
	cacheClient *cache.RedisCache,
	searchClient *search.ElasticClient,
	bus messaging.Client,
	notify notifier.Notifier,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *RequestService {
	return &RequestService{
		repo:    repo,
		idgen:   idgen,
		cache:   cacheClient,
		search:  searchClient,
		bus:     bus,
		notify:  notify,
		metrics: collector,
		tracer:  tracer,
		now:     time.Now,
	}
}

// Create validates the input and persists a new request in the REQUESTED
// stage with a fresh unique id.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*models.RefillRequest, error) {
	txn := s.tracer.StartTransaction("create-request")
	defer s.tracer.EndTransaction(txn)

	if input.Item == "" {
		return nil, validationErrorf("item is required")
	}
	if input.Quantity <= 0 {
		return nil, validationErrorf("quantity must be greater than zero")
	}
	if input.RequestedBy == "" {
		return nil, validationErrorf("requestedBy is required")
	}

	now := s.now().UTC()
	req := &models.RefillRequest{
		ID:          s.idgen.Next(),
		Item:        input.Item,
		Quantity:    input.Quantity,
		Status:      models.StatusRequested,
		RequestedBy: input.RequestedBy,
		RequestedAt: &now,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.metrics.IncrCounter(metrics.CounterWriteFailures)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrCounter(metrics.CounterRequestsCreated)
	s.afterChange(ctx, notifier.NewEvent(notifier.ActionCreated, &req.ID), req)

	log.Info().
		Int64("request_id", req.ID).
		Str("item", req.Item).
		Int("quantity", req.Quantity).
		Str("requested_by", req.RequestedBy).
		Msg("Refill request created")

	return req, nil
}

// Import creates many requests, validating each row independently. A failed
// row never aborts the rest; callers get per-row counts like the interactive
// bulk import did.
func (s *RequestService) Import(ctx context.Context, inputs []CreateRequestInput) ImportResult {
	var result ImportResult
	for _, input := range inputs {
		if _, err := s.Create(ctx, input); err != nil {
			log.Warn().Err(err).Str("item", input.Item).Msg("Skipping import row")
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result
}

// List returns every request ordered by requestedAt descending. Backend
// failures degrade to an empty slice; the periodic poll is the retry.
func (s *RequestService) List(ctx context.Context) []models.RefillRequest {
	reqs, err := s.repo.List(ctx)
	if err != nil {
		s.metrics.IncrCounter(metrics.CounterReadFailures)
		log.Warn().Err(err).Msg("Failed to list requests, serving empty result")
		return []models.RefillRequest{}
	}
	if reqs == nil {
		reqs = []models.RefillRequest{}
	}
	return reqs
}

// UpdateFields applies a sparse update given in external (camelCase) field
// names. Null item/quantity values are dropped before validation, matching
// the established client contract. This path keeps last-write-wins
// semantics; transitions go through Transition for the guarded path.
func (s *RequestService) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*models.RefillRequest, error) {
	txn := s.tracer.StartTransaction("update-request")
	defer s.tracer.EndTransaction(txn)

	columns, err := translateUpdate(fields)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, validationErrorf("no valid fields to update")
	}

	req, err := s.repo.UpdateFields(ctx, id, columns)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncrCounter(metrics.CounterWriteFailures)
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	s.metrics.IncrCounter(metrics.CounterRequestsUpdated)
	s.afterChange(ctx, notifier.NewEvent(notifier.ActionUpdated, &id), req)

	return req, nil
}

// Transition applies a workflow trigger to a request. The engine validates
// against the freshly read record and the repository re-checks the status on
// write, so a concurrent writer surfaces as repository.ErrConflict instead
// of being silently overwritten.
func (s *RequestService) Transition(ctx context.Context, id int64, trigger workflow.Trigger, name string) (*models.RefillRequest, error) {
	txn := s.tracer.StartTransaction("transition-request")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "trigger", string(trigger))

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := workflow.Apply(req, trigger, name, s.now().UTC())
	if err != nil {
		s.metrics.IncrCounter(metrics.CounterTransitionsRejected)
		return nil, err
	}

	updated, err := s.repo.ApplyTransition(ctx, id, change.ExpectedStatus, change.GuardColumn, change.Fields)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.IncrCounter(metrics.CounterTransitionsRejected)
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncrCounter(metrics.CounterWriteFailures)
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	s.metrics.IncrCounter(metrics.CounterTransitionsApplied)
	s.afterChange(ctx, notifier.NewEvent(notifier.ActionTransitioned, &id), updated)
	s.publishResolved(ctx, trigger, updated)

	log.Info().
		Int64("request_id", id).
		Str("trigger", string(trigger)).
		Str("status", string(updated.Status)).
		Msg("Transition applied")

	return updated, nil
}

// Delete removes a single request.
func (s *RequestService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncrCounter(metrics.CounterWriteFailures)
		}
		return err
	}

	s.metrics.IncrCounter(metrics.CounterRequestsDeleted)
	s.afterChange(ctx, notifier.NewEvent(notifier.ActionDeleted, &id), nil)
	if err := s.search.DeleteRequest(ctx, id); err != nil {
		log.Warn().Err(err).Int64("request_id", id).Msg("Failed to remove request from index")
	}
	return nil
}

// Purge removes all requests, or only those whose requestedAt falls within
// the given dates. Dates are widened to whole days: start at 00:00:00, end
// at 23:59:59.999999999, both inclusive.
func (s *RequestService) Purge(ctx context.Context, start, end *time.Time) (int64, error) {
	var (
		count int64
		err   error
	)
	if start != nil && end != nil {
		count, err = s.repo.DeleteRange(ctx, dayStart(*start), dayEnd(*end))
	} else {
		count, err = s.repo.DeleteAll(ctx)
	}
	if err != nil {
		s.metrics.IncrCounter(metrics.CounterWriteFailures)
		return 0, err
	}

	s.afterChange(ctx, notifier.NewEvent(notifier.ActionPurged, nil), nil)

	log.Info().Int64("deleted", count).Msg("Requests purged")
	return count, nil
}

// afterChange fans out the side effects of a successful mutation: stats
// cache invalidation, the cross-session change hint, and best-effort search
// indexing. None of these may fail the mutation itself.
func (s *RequestService) afterChange(ctx context.Context, event notifier.Event, req *models.RefillRequest) {
	if err := s.cache.Invalidate(ctx, cache.StatsCacheKey); err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Warn().Err(err).Msg("Failed to invalidate stats cache")
	}

	if err := s.notify.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("action", event.Action).Msg("Failed to publish change hint")
	}

	if req != nil {
		if err := s.search.IndexRequest(ctx, req); err != nil {
			log.Warn().Err(err).Int64("request_id", req.ID).Msg("Failed to index request")
		}
	}
}

// publishResolved forwards final attributions of resolved requests to the
// ERP events queue.
func (s *RequestService) publishResolved(ctx context.Context, trigger workflow.Trigger, req *models.RefillRequest) {
	var outcome string
	switch trigger {
	case workflow.TriggerMarkRefilled:
		outcome = "refilled"
	case workflow.TriggerConfirmNoStock:
		outcome = "no_stock"
	default:
		return
	}

	event := ResolvedEvent{Outcome: outcome, Request: req}
	if err := s.bus.SendEvent(ctx, event); err != nil {
		log.Warn().Err(err).Int64("request_id", req.ID).Msg("Failed to publish resolved event")
	}
}

// translateUpdate converts an external sparse-update map into column
// updates, enforcing record invariants along the way.
func translateUpdate(fields map[string]interface{}) (map[string]interface{}, error) {
	columns := make(map[string]interface{}, len(fields))
	for ext, value := range fields {
		// Null item/quantity are dropped, not applied: both are non-null
		// invariants and clients send full edit forms.
		if (ext == "item" || ext == "quantity") && value == nil {
			continue
		}

		switch ext {
		case "id":
			return nil, validationErrorf("id is immutable")
		case "requestedAt":
			return nil, validationErrorf("requestedAt is immutable")
		case "item":
			str, ok := value.(string)
			if !ok || str == "" {
				return nil, validationErrorf("item must be a non-empty string")
			}
		case "quantity":
			qty, err := toInt(value)
			if err != nil || qty <= 0 {
				return nil, validationErrorf("quantity must be a positive integer")
			}
			value = qty
		case "status":
			str, _ := value.(string)
			if !models.RequestStatus(str).Valid() {
				return nil, validationErrorf("unknown status %q", value)
			}
		}

		column, ok := models.ColumnFor(ext)
		if !ok {
			return nil, validationErrorf("unknown field %q", ext)
		}
		columns[column] = value
	}
	return columns, nil
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.New("not an integer")
		}
		return int(v), nil
	default:
		return 0, errors.New("not a number")
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Package workflow defines the refill request state machine: which triggers
// are permitted from which stage, and the field set each transition must
// apply atomically.
package workflow

import (
	"time"

	"github.com/pkg/errors"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// Trigger is a user action against a request's workflow state.
type Trigger string

const (
	TriggerStartProcessing  Trigger = "start_processing"
	TriggerConfirmProcessor Trigger = "confirm_processor"
	TriggerMarkInStock      Trigger = "mark_in_stock"
	TriggerMarkOutOfStock   Trigger = "mark_out_of_stock"
	TriggerMarkRefilled     Trigger = "mark_refilled"
	TriggerConfirmNoStock   Trigger = "confirm_no_stock"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerStartProcessing, TriggerConfirmProcessor,
		TriggerMarkInStock, TriggerMarkOutOfStock,
		TriggerMarkRefilled, TriggerConfirmNoStock:
		return true
	}
	return false
}

// Engine errors
var (
	ErrUnknownTrigger    = errors.New("unknown transition trigger")
	ErrInvalidTransition = errors.New("transition not permitted from current status")
	ErrAlreadyAttributed = errors.New("attribution already confirmed for this stage")
	ErrNameRequired      = errors.New("a name is required for this transition")
)

// Change is the outcome of a permitted transition: the column updates to
// apply, guarded by the status the engine validated against. Applying the
// change with a status guard turns a stale read into a conflict instead of a
// silent overwrite.
//
// Confirm triggers leave the status untouched, so the status guard alone
// cannot catch two racing confirms that both read an unattributed record.
// GuardColumn names the attribution column that must still be NULL when the
// update applies; the raced second writer then matches zero rows.
type Change struct {
	ExpectedStatus models.RequestStatus
	GuardColumn    string
	Fields         map[string]interface{}
}

// Apply validates trigger against the request's current state and returns
// the change to persist. The request itself is never mutated; on any error
// the record is left for the caller exactly as it was read.
func Apply(req *models.RefillRequest, trigger Trigger, name string, now time.Time) (*Change, error) {
	switch trigger {
	case TriggerStartProcessing:
		if req.Status != models.StatusRequested {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot start processing from %s", req.Status)
		}
		return change(req, map[string]interface{}{
			"status": models.StatusOnProcess,
		}), nil

	case TriggerConfirmProcessor:
		if req.Status != models.StatusOnProcess {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot confirm processor from %s", req.Status)
		}
		if attributed(req.ProcessedBy) {
			return nil, errors.Wrapf(ErrAlreadyAttributed, "processor already confirmed as %s", *req.ProcessedBy)
		}
		if name == "" {
			return nil, ErrNameRequired
		}
		return guardedChange(req, "processed_by", map[string]interface{}{
			"processed_by":    name,
			"processed_at":    now,
			"processor_input": "",
		}), nil

	case TriggerMarkInStock:
		if req.Status != models.StatusOnProcess || !attributed(req.ProcessedBy) {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot mark in stock from %s", describe(req))
		}
		return change(req, map[string]interface{}{
			"status": models.StatusRefilling,
		}), nil

	case TriggerMarkOutOfStock:
		if req.Status != models.StatusOnProcess || !attributed(req.ProcessedBy) {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot mark out of stock from %s", describe(req))
		}
		return change(req, map[string]interface{}{
			"status": models.StatusNoStock,
		}), nil

	case TriggerMarkRefilled:
		if req.Status != models.StatusRefilling {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot mark refilled from %s", req.Status)
		}
		if attributed(req.RefilledBy) {
			return nil, errors.Wrapf(ErrAlreadyAttributed, "refiller already confirmed as %s", *req.RefilledBy)
		}
		if name == "" {
			return nil, ErrNameRequired
		}
		return guardedChange(req, "refilled_by", map[string]interface{}{
			"refilled_by":    name,
			"refilled_at":    now,
			"refiller_input": "",
		}), nil

	case TriggerConfirmNoStock:
		if req.Status != models.StatusNoStock {
			return nil, errors.Wrapf(ErrInvalidTransition, "cannot confirm no stock from %s", req.Status)
		}
		if attributed(req.NoStockBy) {
			return nil, errors.Wrapf(ErrAlreadyAttributed, "shortage already confirmed by %s", *req.NoStockBy)
		}
		if name == "" {
			return nil, ErrNameRequired
		}
		return guardedChange(req, "no_stock_by", map[string]interface{}{
			"no_stock_by":    name,
			"no_stock_at":    now,
			"no_stock_input": "",
		}), nil
	}

	return nil, errors.Wrapf(ErrUnknownTrigger, "%q", trigger)
}

func change(req *models.RefillRequest, fields map[string]interface{}) *Change {
	return &Change{
		ExpectedStatus: req.Status,
		Fields:         fields,
	}
}

func guardedChange(req *models.RefillRequest, column string, fields map[string]interface{}) *Change {
	ch := change(req, fields)
	ch.GuardColumn = column
	return ch
}

func attributed(by *string) bool {
	return by != nil && *by != ""
}

func describe(req *models.RefillRequest) string {
	if req.Status == models.StatusOnProcess && !attributed(req.ProcessedBy) {
		return string(req.Status) + " without a confirmed processor"
	}
	return string(req.Status)
}

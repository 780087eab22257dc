package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

func newRequest(status models.RequestStatus) *models.RefillRequest {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.RefillRequest{
		ID:          1709283600000,
		Item:        "Gloves",
		Quantity:    10,
		Status:      status,
		RequestedBy: "HAROLD",
		RequestedAt: &now,
	}
}

func apply(t *testing.T, req *models.RefillRequest, trigger Trigger, name string) *Change {
	t.Helper()
	ch, err := Apply(req, trigger, name, time.Now())
	require.NoError(t, err)
	require.NotNil(t, ch)
	return ch
}

// applyChange folds a change back into the record the way the repository's
// guarded update would, so scenario tests can walk the whole lifecycle.
func applyChange(req *models.RefillRequest, ch *Change) {
	for col, val := range ch.Fields {
		switch col {
		case "status":
			req.Status = val.(models.RequestStatus)
		case "processed_by":
			s := val.(string)
			req.ProcessedBy = &s
		case "processed_at":
			ts := val.(time.Time)
			req.ProcessedAt = &ts
		case "processor_input":
			req.ProcessorInput = val.(string)
		case "refilled_by":
			s := val.(string)
			req.RefilledBy = &s
		case "refilled_at":
			ts := val.(time.Time)
			req.RefilledAt = &ts
		case "refiller_input":
			req.RefillerInput = val.(string)
		case "no_stock_by":
			s := val.(string)
			req.NoStockBy = &s
		case "no_stock_at":
			ts := val.(time.Time)
			req.NoStockAt = &ts
		case "no_stock_input":
			req.NoStockInput = val.(string)
		}
	}
}

func TestStartProcessing(t *testing.T) {
	req := newRequest(models.StatusRequested)

	ch := apply(t, req, TriggerStartProcessing, "")
	require.Equal(t, models.StatusRequested, ch.ExpectedStatus)
	require.Equal(t, map[string]interface{}{"status": models.StatusOnProcess}, ch.Fields)
}

func TestConfirmProcessorSetsAttribution(t *testing.T) {
	req := newRequest(models.StatusOnProcess)
	req.ProcessorInput = "LEN"

	now := time.Now()
	ch, err := Apply(req, TriggerConfirmProcessor, "LENI", now)
	require.NoError(t, err)

	require.Equal(t, models.StatusOnProcess, ch.ExpectedStatus)
	require.Equal(t, "LENI", ch.Fields["processed_by"])
	require.Equal(t, now, ch.Fields["processed_at"])
	require.Equal(t, "", ch.Fields["processor_input"])
	// status stays ON_PROCESS: the confirm sub-step augments, not advances
	_, touchesStatus := ch.Fields["status"]
	require.False(t, touchesStatus)
}

func TestConfirmProcessorIsWriteOnce(t *testing.T) {
	req := newRequest(models.StatusOnProcess)
	leni := "LENI"
	req.ProcessedBy = &leni

	_, err := Apply(req, TriggerConfirmProcessor, "CARLO", time.Now())
	require.ErrorIs(t, err, ErrAlreadyAttributed)
	require.Equal(t, "LENI", *req.ProcessedBy)
}

func TestConfirmProcessorRequiresName(t *testing.T) {
	req := newRequest(models.StatusOnProcess)

	_, err := Apply(req, TriggerConfirmProcessor, "", time.Now())
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestStockOutcomesRequireConfirmedProcessor(t *testing.T) {
	req := newRequest(models.StatusOnProcess)

	_, err := Apply(req, TriggerMarkInStock, "", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(req, TriggerMarkOutOfStock, "", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)

	leni := "LENI"
	req.ProcessedBy = &leni

	ch := apply(t, req, TriggerMarkInStock, "")
	require.Equal(t, models.StatusRefilling, ch.Fields["status"])

	ch = apply(t, req, TriggerMarkOutOfStock, "")
	require.Equal(t, models.StatusNoStock, ch.Fields["status"])
}

func TestMarkOutOfStockFromRequestedIsRejected(t *testing.T) {
	req := newRequest(models.StatusRequested)

	_, err := Apply(req, TriggerMarkOutOfStock, "", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, models.StatusRequested, req.Status)
	require.Equal(t, 10, req.Quantity)
}

func TestMarkRefilledOnRequestedIsRejected(t *testing.T) {
	req := newRequest(models.StatusRequested)

	_, err := Apply(req, TriggerMarkRefilled, "CARLO", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Nil(t, req.RefilledBy)
	require.Equal(t, models.StatusRequested, req.Status)
}

func TestConfirmNoStock(t *testing.T) {
	req := newRequest(models.StatusNoStock)

	ch := apply(t, req, TriggerConfirmNoStock, "MARIA")
	require.Equal(t, "MARIA", ch.Fields["no_stock_by"])
	require.Equal(t, "", ch.Fields["no_stock_input"])

	applyChange(req, ch)
	_, err := Apply(req, TriggerConfirmNoStock, "PEDRO", time.Now())
	require.ErrorIs(t, err, ErrAlreadyAttributed)
}

func TestConfirmTriggersCarryAttributionGuard(t *testing.T) {
	ch := apply(t, newRequest(models.StatusOnProcess), TriggerConfirmProcessor, "LENI")
	require.Equal(t, "processed_by", ch.GuardColumn)

	ch = apply(t, newRequest(models.StatusRefilling), TriggerMarkRefilled, "CARLO")
	require.Equal(t, "refilled_by", ch.GuardColumn)

	ch = apply(t, newRequest(models.StatusNoStock), TriggerConfirmNoStock, "MARIA")
	require.Equal(t, "no_stock_by", ch.GuardColumn)
}

func TestStatusTransitionsCarryNoGuard(t *testing.T) {
	ch := apply(t, newRequest(models.StatusRequested), TriggerStartProcessing, "")
	require.Empty(t, ch.GuardColumn)

	onProcess := newRequest(models.StatusOnProcess)
	leni := "LENI"
	onProcess.ProcessedBy = &leni
	ch = apply(t, onProcess, TriggerMarkInStock, "")
	require.Empty(t, ch.GuardColumn)
}

func TestUnknownTrigger(t *testing.T) {
	req := newRequest(models.StatusRequested)

	_, err := Apply(req, Trigger("escalate"), "", time.Now())
	require.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestFullLifecycleScenario(t *testing.T) {
	req := newRequest(models.StatusRequested)

	applyChange(req, apply(t, req, TriggerStartProcessing, ""))
	require.Equal(t, models.StatusOnProcess, req.Status)
	require.Nil(t, req.ProcessedBy)

	applyChange(req, apply(t, req, TriggerConfirmProcessor, "LENI"))
	require.Equal(t, models.StatusOnProcess, req.Status)
	require.Equal(t, "LENI", *req.ProcessedBy)
	require.NotNil(t, req.ProcessedAt)

	applyChange(req, apply(t, req, TriggerMarkInStock, ""))
	require.Equal(t, models.StatusRefilling, req.Status)

	applyChange(req, apply(t, req, TriggerMarkRefilled, "CARLO"))
	require.Equal(t, models.StatusRefilling, req.Status)
	require.Equal(t, "CARLO", *req.RefilledBy)
	require.NotNil(t, req.RefilledAt)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// RequestRepository defines data access for refill requests.
type RequestRepository interface {
	Create(ctx context.Context, req *models.RefillRequest) error
	GetByID(ctx context.Context, id int64) (*models.RefillRequest, error)
	List(ctx context.Context) ([]models.RefillRequest, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*models.RefillRequest, error)
	ApplyTransition(ctx context.Context, id int64, expected models.RequestStatus, guardNull string, fields map[string]interface{}) (*models.RefillRequest, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteRange(ctx context.Context, start, end time.Time) (int64, error)
}

// requestRepository implements RequestRepository on gorm
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Create inserts a new request
func (r *requestRepository) Create(ctx context.Context, req *models.RefillRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "failed to create request")
	}
	return nil
}

// GetByID gets a request by id
func (r *requestRepository) GetByID(ctx context.Context, id int64) (*models.RefillRequest, error) {
	var req models.RefillRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get request")
	}
	return &req, nil
}

// List returns all requests ordered by requested_at descending
func (r *requestRepository) List(ctx context.Context) ([]models.RefillRequest, error) {
	var reqs []models.RefillRequest
	err := r.db.WithContext(ctx).
		Order("requested_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list requests")
	}
	return reqs, nil
}

// UpdateFields applies a sparse set of column updates and returns the full
// post-update record. Unsubmitted columns keep their stored values; the
// last writer wins per overlapping column.
func (r *requestRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*models.RefillRequest, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefillRequest{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to update request")
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// ApplyTransition applies the column updates of a workflow transition,
// guarded by the status the transition was validated against and, when
// guardNull is set, by that attribution column still being NULL. Confirm
// transitions don't change status, so the attribution guard is what catches
// two racing confirms that both read an unattributed record. A matched id
// that fails either guard means another writer got there first; that
// surfaces as ErrConflict, never as a silent overwrite.
func (r *requestRepository) ApplyTransition(ctx context.Context, id int64, expected models.RequestStatus, guardNull string, fields map[string]interface{}) (*models.RefillRequest, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RefillRequest{}).
		Where("id = ? AND status = ?", id, expected)
	if guardNull != "" {
		query = query.Where(fmt.Sprintf("%s IS NULL", guardNull))
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to apply transition")
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		} else if err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}

	return r.GetByID(ctx, id)
}

// Delete removes a single request
func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.RefillRequest{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete request")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every request and returns the removed count
func (r *requestRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.RefillRequest{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete requests")
	}
	return result.RowsAffected, nil
}

// DeleteRange removes requests whose requested_at falls within [start, end]
// inclusive and returns the removed count. Single statement, not cancelable
// once issued.
func (r *requestRepository) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("requested_at BETWEEN ? AND ?", start, end).
		Delete(&models.RefillRequest{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete requests in range")
	}
	return result.RowsAffected, nil
}

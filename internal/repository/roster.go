package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// RosterRepository defines data access for the autocomplete rosters
// (items, requesters, refillers).
type RosterRepository interface {
	List(ctx context.Context, kind models.RosterKind) ([]models.RosterEntry, error)
	Add(ctx context.Context, kind models.RosterKind, name string) (*models.RosterEntry, error)
	Remove(ctx context.Context, kind models.RosterKind, name string) error
}

// rosterRepository implements RosterRepository on gorm
type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// List returns a roster ordered by position, then name
func (r *rosterRepository) List(ctx context.Context, kind models.RosterKind) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("position, name").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list roster entries")
	}
	return entries, nil
}

// Add appends a name to the end of a roster
func (r *rosterRepository) Add(ctx context.Context, kind models.RosterKind, name string) (*models.RosterEntry, error) {
	entry := &models.RosterEntry{Kind: kind, Name: name}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max struct{ Max int }
		if err := tx.Model(&models.RosterEntry{}).
			Select("COALESCE(MAX(position), 0) AS max").
			Where("kind = ?", kind).
			Scan(&max).Error; err != nil {
			return err
		}
		entry.Position = max.Max + 1

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to add roster entry")
	}
	if entry.ID == 0 {
		// ON CONFLICT DO NOTHING leaves the id unset when the name exists
		return nil, ErrDuplicate
	}
	return entry, nil
}

// Remove deletes a name from a roster
func (r *rosterRepository) Remove(ctx context.Context, kind models.RosterKind, name string) error {
	result := r.db.WithContext(ctx).
		Where("kind = ? AND name = ?", kind, name).
		Delete(&models.RosterEntry{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to remove roster entry")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

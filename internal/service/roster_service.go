package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
)

// RosterService manages the name rosters the request forms draw from:
// stocked items, requesters and refillers.
type RosterService struct {
	repo repository.RosterRepository
}

// NewRosterService creates a new roster service
func NewRosterService(repo repository.RosterRepository) *RosterService {
	return &RosterService{repo: repo}
}

// List returns a roster in display order. Read failures degrade to empty.
func (s *RosterService) List(ctx context.Context, kind models.RosterKind) []models.RosterEntry {
	entries, err := s.repo.List(ctx, kind)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to list roster, serving empty result")
		return []models.RosterEntry{}
	}
	if entries == nil {
		entries = []models.RosterEntry{}
	}
	return entries
}

// Add appends a name to a roster. Names are stored upper-cased; duplicates
// are rejected with repository.ErrDuplicate.
func (s *RosterService) Add(ctx context.Context, kind models.RosterKind, name string) (*models.RosterEntry, error) {
	if !kind.Valid() {
		return nil, validationErrorf("unknown roster %q", kind)
	}

	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, validationErrorf("name is required")
	}

	return s.repo.Add(ctx, kind, name)
}

// Import adds many names to a roster, counting duplicates and blanks as
// failed rows rather than aborting.
func (s *RosterService) Import(ctx context.Context, kind models.RosterKind, names []string) (ImportResult, error) {
	if !kind.Valid() {
		return ImportResult{}, validationErrorf("unknown roster %q", kind)
	}

	var result ImportResult
	for _, name := range names {
		if _, err := s.Add(ctx, kind, name); err != nil {
			if !errors.Is(err, repository.ErrDuplicate) && !IsValidation(err) {
				return result, err
			}
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// Remove deletes a name from a roster.
func (s *RosterService) Remove(ctx context.Context, kind models.RosterKind, name string) error {
	if !kind.Valid() {
		return validationErrorf("unknown roster %q", kind)
	}

	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return validationErrorf("name is required")
	}

	return s.repo.Remove(ctx, kind, name)
}

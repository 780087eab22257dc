package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
)

type mockRosterRepo struct {
	mock.Mock
}

func (m *mockRosterRepo) List(ctx context.Context, kind models.RosterKind) ([]models.RosterEntry, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RosterEntry), args.Error(1)
}

func (m *mockRosterRepo) Add(ctx context.Context, kind models.RosterKind, name string) (*models.RosterEntry, error) {
	args := m.Called(ctx, kind, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RosterEntry), args.Error(1)
}

func (m *mockRosterRepo) Remove(ctx context.Context, kind models.RosterKind, name string) error {
	args := m.Called(ctx, kind, name)
	return args.Error(0)
}

func TestRosterAddNormalizesName(t *testing.T) {
	repo := new(mockRosterRepo)
	svc := NewRosterService(repo)

	entry := &models.RosterEntry{Kind: models.RosterItems, Name: "PAPER CUPS", Position: 3}
	repo.On("Add", mock.Anything, models.RosterItems, "PAPER CUPS").Return(entry, nil)

	added, err := svc.Add(context.Background(), models.RosterItems, "  paper cups ")

	require.NoError(t, err)
	assert.Equal(t, "PAPER CUPS", added.Name)
	repo.AssertExpectations(t)
}

func TestRosterAddValidation(t *testing.T) {
	repo := new(mockRosterRepo)
	svc := NewRosterService(repo)

	_, err := svc.Add(context.Background(), models.RosterItems, "   ")
	assert.True(t, IsValidation(err))

	_, err = svc.Add(context.Background(), models.RosterKind("vendors"), "ACME")
	assert.True(t, IsValidation(err))

	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestRosterImportCountsDuplicates(t *testing.T) {
	repo := new(mockRosterRepo)
	svc := NewRosterService(repo)

	repo.On("Add", mock.Anything, models.RosterRequesters, "HAROLD").
		Return(&models.RosterEntry{Kind: models.RosterRequesters, Name: "HAROLD"}, nil)
	repo.On("Add", mock.Anything, models.RosterRequesters, "LENI").
		Return(nil, repository.ErrDuplicate)

	result, err := svc.Import(context.Background(), models.RosterRequesters, []string{"harold", "leni", ""})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
}

func TestRosterListDegradesToEmpty(t *testing.T) {
	repo := new(mockRosterRepo)
	svc := NewRosterService(repo)
	repo.On("List", mock.Anything, models.RosterRefillers).Return(nil, assert.AnError)

	entries := svc.List(context.Background(), models.RosterRefillers)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

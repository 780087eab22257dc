package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RequestStatus is the workflow stage of a refill request.
type RequestStatus string

// Workflow stages. REQUESTED is the initial stage; REFILLING and NO_STOCK
// are the resolved stock outcomes.
const (
	StatusRequested RequestStatus = "REQUESTED"
	StatusOnProcess RequestStatus = "ON_PROCESS"
	StatusNoStock   RequestStatus = "NO_STOCK"
	StatusRefilling RequestStatus = "REFILLING"
)

// Valid reports whether s is one of the known workflow stages.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusOnProcess, StatusNoStock, StatusRefilling:
		return true
	}
	return false
}

// Resolved reports whether s is a resolved stock outcome. Resolved requests
// are excluded from the active queue even when an attribution name is still
// pending confirmation.
func (s RequestStatus) Resolved() bool {
	return s == StatusNoStock || s == StatusRefilling
}

// RefillRequest is a unit of work representing a need to restock a specific
// item in a specific quantity. The three *_input columns are client staging
// values kept for schema compatibility; the server clears them on confirm
// transitions and never reads them as confirmation state.
type RefillRequest struct {
	ID          int64         `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Item        string        `gorm:"column:item;not null" json:"item"`
	Quantity    int           `gorm:"column:quantity;not null" json:"quantity"`
	Status      RequestStatus `gorm:"column:status;type:text;not null" json:"status"`
	RequestedBy string        `gorm:"column:requested_by" json:"requestedBy"`
	RequestedAt *time.Time    `gorm:"column:requested_at;type:timestamptz" json:"requestedAt"`
	ProcessedBy *string       `gorm:"column:processed_by" json:"processedBy"`
	ProcessedAt *time.Time    `gorm:"column:processed_at;type:timestamptz" json:"processedAt"`
	RefilledBy  *string       `gorm:"column:refilled_by" json:"refilledBy"`
	RefilledAt  *time.Time    `gorm:"column:refilled_at;type:timestamptz" json:"refilledAt"`
	NoStockBy   *string       `gorm:"column:no_stock_by" json:"noStockBy"`
	NoStockAt   *time.Time    `gorm:"column:no_stock_at;type:timestamptz" json:"noStockAt"`

	RefillerInput  string `gorm:"column:refiller_input" json:"refillerInput"`
	NoStockInput   string `gorm:"column:no_stock_input" json:"noStockInput"`
	ProcessorInput string `gorm:"column:processor_input" json:"processorInput"`
}

// TableName overrides the gorm table name
func (RefillRequest) TableName() string {
	return "requests"
}

// RosterKind identifies one of the autocomplete rosters maintained alongside
// the request queue.
type RosterKind string

const (
	RosterItems      RosterKind = "items"
	RosterRequesters RosterKind = "requesters"
	RosterRefillers  RosterKind = "refillers"
)

// Valid reports whether k is a known roster kind.
func (k RosterKind) Valid() bool {
	switch k {
	case RosterItems, RosterRequesters, RosterRefillers:
		return true
	}
	return false
}

// RosterEntry is one name in an ordered roster. Rosters are consulted only
// for input autocomplete; the workflow never enforces membership.
type RosterEntry struct {
	ID       uint       `gorm:"column:id;primaryKey" json:"-"`
	Kind     RosterKind `gorm:"column:kind;type:text;not null;uniqueIndex:idx_roster_kind_name" json:"kind"`
	Name     string     `gorm:"column:name;not null;uniqueIndex:idx_roster_kind_name" json:"name"`
	Position int        `gorm:"column:position;not null;default:0" json:"position"`
}

// TableName overrides the gorm table name
func (RosterEntry) TableName() string {
	return "roster_entries"
}

// SetupModels configures GORM models and runs migrations. Provisioning is
// idempotent so callers can run it on every start.
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&RefillRequest{},
		&RosterEntry{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}

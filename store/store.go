// Package store persists conversations, their message log, and the truck
// fleet records in Postgres.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// ErrTruckNotFound is returned when no truck matches the requested plate.
var ErrTruckNotFound = errors.New("store: truck not found")

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Truck is a fleet asset addressable by license plate.
type Truck struct {
	ID              int64          `db:"id"`
	LicensePlate    string         `db:"license_plate"`
	DriverName      string         `db:"driver_name"`
	Model           string         `db:"model"`
	Year            int            `db:"year"`
	Status          string         `db:"status"`
	LastMaintenance sql.NullTime   `db:"last_maintenance"`
	AdditionalInfo  sql.NullString `db:"additional_info"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// SelectionContext is the truck snapshot captured when a plate resolves.
// It is a cache of the truck row, not the authoritative record.
type SelectionContext struct {
	TruckID    int64  `json:"truck_id"`
	DriverName string `json:"driver_name"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
}

// Conversation is the singleton dialogue record per remote phone number.
type Conversation struct {
	ID               int64              `db:"id"`
	PhoneNumber      string             `db:"phone_number"`
	CurrentStep      string             `db:"current_step"`
	LicensePlate     sql.NullString     `db:"license_plate"`
	ContextData      types.NullJSONText `db:"context_data"`
	PendingSelection sql.NullString     `db:"pending_selection"`
	IsActive         bool               `db:"is_active"`
	LastInteraction  sql.NullTime       `db:"last_interaction"`
	CreatedAt        time.Time          `db:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at"`
}

// Selection decodes the stored truck snapshot, if any.
func (c *Conversation) Selection() (*SelectionContext, bool) {
	if !c.ContextData.Valid || len(c.ContextData.JSONText) == 0 {
		return nil, false
	}
	var sel SelectionContext
	if err := json.Unmarshal(c.ContextData.JSONText, &sel); err != nil {
		return nil, false
	}
	if sel.TruckID == 0 {
		return nil, false
	}
	return &sel, true
}

// SetSelection stores the truck snapshot and plate on the conversation.
func (c *Conversation) SetSelection(plate string, sel SelectionContext) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("store: marshal selection: %w", err)
	}
	c.LicensePlate = sql.NullString{String: plate, Valid: true}
	c.ContextData = types.NullJSONText{JSONText: raw, Valid: true}
	return nil
}

// ClearSelection drops the plate, snapshot, and pending option.
func (c *Conversation) ClearSelection() {
	c.LicensePlate = sql.NullString{}
	c.ContextData = types.NullJSONText{}
	c.PendingSelection = sql.NullString{}
}

// Message is an append-only log entry owned by a conversation.
type Message struct {
	ID             int64              `db:"id"`
	ConversationID int64              `db:"conversation_id"`
	Direction      string             `db:"direction"`
	Body           string             `db:"body"`
	WAMessageID    sql.NullString     `db:"wa_message_id"`
	Metadata       types.NullJSONText `db:"metadata"`
	CreatedAt      time.Time          `db:"created_at"`
}

// Store bundles the repositories over one connection pool.
type Store struct {
	Conversations *Conversations
	Messages      *Messages
	Trucks        *Trucks
}

// New builds the repositories on top of the given pool.
func New(db *sqlx.DB) *Store {
	return &Store{
		Conversations: &Conversations{db: db},
		Messages:      &Messages{db: db},
		Trucks:        &Trucks{db: db},
	}
}

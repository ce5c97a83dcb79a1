package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Conversations reads and writes the per-phone dialogue rows.
type Conversations struct {
	db *sqlx.DB
}

// GetOrCreate returns the conversation for the phone number, creating it in
// the initial step on first contact.
func (r *Conversations) GetOrCreate(ctx context.Context, phone string, now time.Time) (*Conversation, error) {
	const q = `
		INSERT INTO whatsapp_conversations (phone_number, current_step, is_active, last_interaction)
		VALUES ($1, 'welcome', TRUE, $2)
		ON CONFLICT (phone_number) DO UPDATE SET updated_at = now()
		RETURNING *`

	var conv Conversation
	if err := r.db.GetContext(ctx, &conv, q, phone, now); err != nil {
		return nil, fmt.Errorf("conversations get or create: %w", err)
	}
	return &conv, nil
}

// Save persists the mutable dialogue fields in one atomic row update.
func (r *Conversations) Save(ctx context.Context, conv *Conversation) error {
	const q = `
		UPDATE whatsapp_conversations
		SET current_step = :current_step,
		    license_plate = :license_plate,
		    context_data = :context_data,
		    pending_selection = :pending_selection,
		    is_active = :is_active,
		    last_interaction = :last_interaction,
		    updated_at = now()
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, q, conv); err != nil {
		return fmt.Errorf("conversations save: %w", err)
	}
	return nil
}

// ListIdleActive returns active conversations whose last interaction is older
// than the cutoff. Used by the inactivity sweeper.
func (r *Conversations) ListIdleActive(ctx context.Context, cutoff time.Time) ([]Conversation, error) {
	const q = `
		SELECT * FROM whatsapp_conversations
		WHERE is_active AND last_interaction IS NOT NULL AND last_interaction < $1
		ORDER BY last_interaction`
	var out []Conversation
	if err := r.db.SelectContext(ctx, &out, q, cutoff); err != nil {
		return nil, fmt.Errorf("conversations list idle: %w", err)
	}
	return out, nil
}

// Deactivate flips is_active off without touching dialogue state.
func (r *Conversations) Deactivate(ctx context.Context, id int64) error {
	const q = `
		UPDATE whatsapp_conversations
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("conversations deactivate: %w", err)
	}
	return nil
}

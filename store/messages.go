package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Messages appends to and inspects the per-conversation message log.
type Messages struct {
	db *sqlx.DB
}

// Append inserts a new log entry and fills in its id and created_at.
func (r *Messages) Append(ctx context.Context, msg *Message) error {
	const q = `
		INSERT INTO whatsapp_messages (conversation_id, direction, body, wa_message_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, q,
		msg.ConversationID, msg.Direction, msg.Body, msg.WAMessageID, msg.Metadata)
	if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("messages append: %w", err)
	}
	return nil
}

// HasRecentOutgoingBody reports whether the identical body was already sent
// on this conversation within the window. Backs the duplicate-send guard.
func (r *Messages) HasRecentOutgoingBody(ctx context.Context, conversationID int64, body string, window time.Duration) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM whatsapp_messages
			WHERE conversation_id = $1
			  AND direction = 'outgoing'
			  AND body = $2
			  AND created_at > now() - $3::interval
		)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, conversationID, body, pgInterval(window)); err != nil {
		return false, fmt.Errorf("messages recent body lookup: %w", err)
	}
	return exists, nil
}

// HasRecentOutgoing reports whether anything at all went out on this
// conversation within the window, regardless of body.
func (r *Messages) HasRecentOutgoing(ctx context.Context, conversationID int64, window time.Duration) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM whatsapp_messages
			WHERE conversation_id = $1
			  AND direction = 'outgoing'
			  AND created_at > now() - $2::interval
		)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, conversationID, pgInterval(window)); err != nil {
		return false, fmt.Errorf("messages recent outgoing lookup: %w", err)
	}
	return exists, nil
}

func pgInterval(d time.Duration) string {
	return fmt.Sprintf("%d milliseconds", d.Milliseconds())
}

package dialog

import (
	"context"
	"time"

	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/store"
)

// Gateway sends outbound messages. Satisfied by *whatsapp.Client.
type Gateway interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResult, error)
	SendList(ctx context.Context, to, header, body, buttonLabel string, rows []whatsapp.Option) (*whatsapp.SendResult, error)
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Option) (*whatsapp.SendResult, error)
}

// TruckFinder resolves license plates. Satisfied by *store.Trucks.
type TruckFinder interface {
	FindByPlate(ctx context.Context, plate string) (*store.Truck, error)
}

// ConversationStore persists dialogue state. Satisfied by *store.Conversations.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, phone string, now time.Time) (*store.Conversation, error)
	Save(ctx context.Context, conv *store.Conversation) error
}

// MessageLog records traffic and answers dedup queries. Satisfied by
// *store.Messages.
type MessageLog interface {
	Append(ctx context.Context, msg *store.Message) error
	HasRecentOutgoingBody(ctx context.Context, conversationID int64, body string, window time.Duration) (bool, error)
	HasRecentOutgoing(ctx context.Context, conversationID int64, window time.Duration) (bool, error)
}

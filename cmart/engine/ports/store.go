package engineports

import (
	"context"
	"time"
)

// Turn is a persisted conversational exchange.
type Turn struct {
	ID        string
	Sender    string // "USER" | "BOT"
	Content   string
	CreatedAt time.Time
}

// OrderRecord is a persisted customer order.
type OrderRecord struct {
	ID              int64
	ConversationID  string
	CustomerName    string
	CustomerContact string
	Items           string
	Notes           string
	Status          string
	CreatedAt       time.Time
}

// ConversationStore persists conversation turns.
type ConversationStore interface {
	SaveTurn(ctx context.Context, conversationID string, turn Turn) error
	// LoadRecent returns at most k turns ordered most-recent-first.
	LoadRecent(ctx context.Context, conversationID string, k int) ([]Turn, error)
}

// OrderStore persists orders placed through a conversation.
type OrderStore interface {
	SaveOrder(ctx context.Context, order OrderRecord) (int64, error)
	// RecentOrders returns at most limit orders ordered most-recent-first.
	RecentOrders(ctx context.Context, conversationID string, limit int) ([]OrderRecord, error)
	CancelOrder(ctx context.Context, id int64) error
}

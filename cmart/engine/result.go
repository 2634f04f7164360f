package engine

import "time"

// Sender identifies who produced a conversation turn.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// ConversationTurn is a single message in a conversation. Turns are immutable
// once created and owned by the calling system's message store; the engine
// only reads a bounded window of them.
type ConversationTurn struct {
	Sender    Sender
	Content   string
	CreatedAt time.Time
}

// OrderSummary is the compact view of a past order rendered into the prompt's
// order-history block.
type OrderSummary struct {
	ID     int64
	Items  string
	Status string
}

// OrderDraft is the structured payload recovered from a create-order intent.
// Fields mirror what the generator is instructed to collect; all are free
// text and validated only for shape at the parse boundary.
type OrderDraft struct {
	CustomerName    string `json:"customerName"`
	CustomerContact string `json:"customerContact"`
	Items           string `json:"items"`
	Notes           string `json:"notes"`
}

// GenerationRequest carries everything needed to build one prompt. History is
// ordered most-recent-first; the builder windows it and reorders it
// chronologically before rendering. A request is transient and never mutated
// after construction.
type GenerationRequest struct {
	UserText       string
	History        []ConversationTurn
	ProductContext string
	PastOrders     []OrderSummary
}

// ResultKind tags the variant of a GenerationResult.
type ResultKind string

const (
	KindPlainReply   ResultKind = "plain_reply"
	KindCreateOrder  ResultKind = "create_order"
	KindFetchOrders  ResultKind = "fetch_orders"
	KindCancelOrder  ResultKind = "cancel_order"
	KindConfirmation ResultKind = "order_confirmation"
)

// GenerationResult is the engine's typed output. Exactly one Kind per result;
// Text is always non-empty, falling back to the raw model output or a canned
// message when parsing degrades.
type GenerationResult struct {
	Kind ResultKind
	Text string

	// Images accompanies plain replies only. Nil when the model sent none;
	// non-string entries in the model payload are dropped silently.
	Images []string

	// Order is set for create-order intents only.
	Order *OrderDraft

	// OrderID is set for cancel-order intents when the model named one.
	OrderID *int64
}

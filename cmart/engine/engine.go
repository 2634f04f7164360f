package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// apologyText is what the customer sees when the external generator fails.
const apologyText = "Sorry, something went wrong on our side. Please try again in a moment."

// maxPastOrders bounds the order-history block rendered into the prompt.
const maxPastOrders = 5

// Engine coordinates one generation round trip: load context, build the
// prompt, call the generator, parse the output, persist the turns. Engines
// hold no per-request state and are safe for concurrent use.
type Engine struct {
	provider ports.Provider
	builder  *PromptBuilder
	parser   *ResponseParser
	confirm  *ConfirmationRenderer
	store    ports.ConversationStore
	orders   ports.OrderStore
	cache    ports.Cache
	limiter  ports.RateLimiter
	tracer   ports.Tracer
	logger   zerolog.Logger

	opts     ports.Options
	cacheTTL int
}

// NewEngine creates an engine with explicit dependencies. Use a Factory to
// wire one from configuration.
func NewEngine(
	provider ports.Provider,
	builder *PromptBuilder,
	parser *ResponseParser,
	confirm *ConfirmationRenderer,
	store ports.ConversationStore,
	orders ports.OrderStore,
	cache ports.Cache,
	limiter ports.RateLimiter,
	tracer ports.Tracer,
	logger zerolog.Logger,
	opts ports.Options,
	cacheTTL int,
) *Engine {
	return &Engine{
		provider: provider,
		builder:  builder,
		parser:   parser,
		confirm:  confirm,
		store:    store,
		orders:   orders,
		cache:    cache,
		limiter:  limiter,
		tracer:   tracer,
		logger:   logger,
		opts:     opts,
		cacheTTL: cacheTTL,
	}
}

// Respond runs one full generation round for the customer's message.
// productContext is the pre-rendered inventory listing; formatting it is the
// caller's responsibility. Generator failure degrades to an apology reply,
// never to an error; errors are reserved for infrastructure refusals such as
// rate limiting.
func (e *Engine) Respond(ctx context.Context, conversationID, userText, productContext string) (GenerationResult, error) {
	release, err := e.limiter.Acquire(ctx, "respond")
	if err != nil {
		return GenerationResult{}, fmt.Errorf("rate limit exceeded: %w", err)
	}
	defer release()

	ctx, finish := e.tracer.StartSpan(ctx, "respond", map[string]any{
		"conversation_id": conversationID,
	})
	defer finish(nil)

	req := GenerationRequest{UserText: userText, ProductContext: productContext}

	// History and past orders load concurrently; each goroutine fills its
	// own request field.
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		turns, err := e.store.LoadRecent(ctx, conversationID, historyWindow)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		req.History = toConversationTurns(turns)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		recs, err := e.orders.RecentOrders(ctx, conversationID, maxPastOrders)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		req.PastOrders = toOrderSummaries(recs)
		return nil
	})
	if err := p.Wait(); err != nil {
		// Generate with whatever context did load.
		e.tracer.Event(ctx, "context_load_error", map[string]any{"error": err.Error()})
	}

	prompt := e.builder.Build(req)

	var rawText string
	key := "gen:" + hashString(prompt)
	if cached, ok := e.cache.Get(ctx, key); ok {
		e.tracer.Event(ctx, "cache_hit", map[string]any{"key": key})
		rawText = string(cached)
	} else {
		completion, err := e.provider.Complete(ctx, prompt, e.opts)
		if err != nil {
			e.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("generator call failed")
			res := GenerationResult{Kind: KindPlainReply, Text: apologyText}
			e.saveTurns(ctx, conversationID, userText, res.Text)
			return res, nil
		}
		rawText = completion.Text
		if err := e.cache.Set(ctx, key, []byte(rawText), e.cacheTTL); err != nil {
			e.tracer.Event(ctx, "cache_error", map[string]any{"error": err.Error()})
		}
	}

	result := e.parser.Parse(rawText)
	e.saveTurns(ctx, conversationID, userText, result.Text)
	return result, nil
}

// ConfirmOrder renders the confirmation text for a finalized order and
// persists it as a bot turn. The result's Text is terminal: it is shown to
// the customer verbatim.
func (e *Engine) ConfirmOrder(ctx context.Context, conversationID string, order ConfirmedOrder, customerMessage string) GenerationResult {
	res := e.confirm.Render(ctx, order, customerMessage)

	turn := ports.Turn{
		ID:        uuid.New().String(),
		Sender:    string(SenderBot),
		Content:   res.Text,
		CreatedAt: time.Now(),
	}
	if err := e.store.SaveTurn(ctx, conversationID, turn); err != nil {
		e.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
	}
	return res
}

// PlaceOrder persists an order recovered from a create-order intent and
// returns its id.
func (e *Engine) PlaceOrder(ctx context.Context, conversationID string, draft OrderDraft) (int64, error) {
	id, err := e.orders.SaveOrder(ctx, ports.OrderRecord{
		ConversationID:  conversationID,
		CustomerName:    draft.CustomerName,
		CustomerContact: draft.CustomerContact,
		Items:           draft.Items,
		Notes:           draft.Notes,
		Status:          "NEW",
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("save order: %w", err)
	}
	return id, nil
}

// CancelOrder marks an order cancelled.
func (e *Engine) CancelOrder(ctx context.Context, id int64) error {
	return e.orders.CancelOrder(ctx, id)
}

// ListOrders returns the most recent orders for a conversation.
func (e *Engine) ListOrders(ctx context.Context, conversationID string, limit int) ([]OrderSummary, error) {
	recs, err := e.orders.RecentOrders(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return toOrderSummaries(recs), nil
}

func (e *Engine) saveTurns(ctx context.Context, conversationID, userText, botText string) {
	now := time.Now()
	turns := []ports.Turn{
		{ID: uuid.New().String(), Sender: string(SenderUser), Content: userText, CreatedAt: now},
		{ID: uuid.New().String(), Sender: string(SenderBot), Content: botText, CreatedAt: now},
	}
	for _, t := range turns {
		if err := e.store.SaveTurn(ctx, conversationID, t); err != nil {
			e.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
		}
	}
}

func toConversationTurns(turns []ports.Turn) []ConversationTurn {
	out := make([]ConversationTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, ConversationTurn{
			Sender:    Sender(t.Sender),
			Content:   t.Content,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

func toOrderSummaries(recs []ports.OrderRecord) []OrderSummary {
	out := make([]OrderSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, OrderSummary{ID: r.ID, Items: r.Items, Status: r.Status})
	}
	return out
}

// hashString creates a short deterministic key component (djb2).
func hashString(s string) string {
	hash := uint32(5381)
	for _, r := range s {
		hash = ((hash << 5) + hash) + uint32(r)
	}
	return fmt.Sprintf("%x", hash)
}

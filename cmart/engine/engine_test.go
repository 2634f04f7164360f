package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexlane/convomart/cmart/engine/adapters"
	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// stubProvider returns canned completions and records prompts it was given.
type stubProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (p *stubProvider) Complete(_ context.Context, prompt string, _ ports.Options) (ports.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return ports.Completion{}, p.err
	}
	return ports.Completion{Text: p.reply}, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

var _ ports.Provider = (*stubProvider)(nil)

// stubStore is an in-memory ConversationStore and OrderStore.
type stubStore struct {
	mu     sync.Mutex
	turns  map[string][]ports.Turn
	orders []ports.OrderRecord
	nextID int64

	loadErr error
	// noHistory suppresses LoadRecent output without disabling SaveTurn.
	noHistory bool
}

func newStubStore() *stubStore {
	return &stubStore{turns: make(map[string][]ports.Turn)}
}

func (s *stubStore) SaveTurn(_ context.Context, conversationID string, turn ports.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[conversationID] = append(s.turns[conversationID], turn)
	return nil
}

func (s *stubStore) LoadRecent(_ context.Context, conversationID string, k int) ([]ports.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.noHistory {
		return nil, nil
	}
	all := s.turns[conversationID]
	out := make([]ports.Turn, 0, k)
	for i := len(all) - 1; i >= 0 && len(out) < k; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *stubStore) SaveOrder(_ context.Context, rec ports.OrderRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.orders = append(s.orders, rec)
	return rec.ID, nil
}

func (s *stubStore) RecentOrders(_ context.Context, conversationID string, limit int) ([]ports.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]ports.OrderRecord, 0, limit)
	for i := len(s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if s.orders[i].ConversationID == conversationID {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}

func (s *stubStore) CancelOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = "CANCELLED"
			return nil
		}
	}
	return fmt.Errorf("order %d not found", id)
}

func (s *stubStore) savedTurns(conversationID string) []ports.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Turn(nil), s.turns[conversationID]...)
}

var (
	_ ports.ConversationStore = (*stubStore)(nil)
	_ ports.OrderStore        = (*stubStore)(nil)
)

type deniedLimiter struct{}

func (deniedLimiter) Acquire(context.Context, string) (func(), error) {
	return nil, adapters.ErrRateLimitExceeded
}

func newTestEngine(p ports.Provider, st *stubStore, cache ports.Cache, limiter ports.RateLimiter) *Engine {
	logger := zerolog.Nop()
	if cache == nil {
		cache = &noOpCache{}
	}
	if limiter == nil {
		limiter = &noOpRateLimiter{}
	}
	opts := ports.Options{MaxNewTokens: 256}
	return NewEngine(
		p,
		NewPromptBuilder("Luna Ceramics", ""),
		NewResponseParser(logger),
		NewConfirmationRenderer(p, opts, logger),
		st, st,
		cache,
		limiter,
		&noOpTracer{},
		logger,
		opts,
		300,
	)
}

func TestRespond_SavesBothTurns(t *testing.T) {
	provider := &stubProvider{reply: "Hello! We sell mugs and vases."}
	store := newStubStore()
	eng := newTestEngine(provider, store, nil, nil)

	res, err := eng.Respond(context.Background(), "conv-1", "hi", "- Mug, $12")
	require.NoError(t, err)
	assert.Equal(t, KindPlainReply, res.Kind)
	assert.Equal(t, "Hello! We sell mugs and vases.", res.Text)

	turns := store.savedTurns("conv-1")
	require.Len(t, turns, 2)
	assert.Equal(t, string(SenderUser), turns[0].Sender)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, string(SenderBot), turns[1].Sender)
	assert.Equal(t, "Hello! We sell mugs and vases.", turns[1].Content)
	assert.NotEmpty(t, turns[0].ID)
	assert.NotEqual(t, turns[0].ID, turns[1].ID)
}

func TestRespond_PromptCarriesContext(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	store := newStubStore()
	eng := newTestEngine(provider, store, nil, nil)

	ctx := context.Background()
	_, err := eng.PlaceOrder(ctx, "conv-1", OrderDraft{Items: "2x mug"})
	require.NoError(t, err)

	_, err = eng.Respond(ctx, "conv-1", "do you have vases?", "- Vase, $30")
	require.NoError(t, err)
	_, err = eng.Respond(ctx, "conv-1", "blue ones?", "- Vase, $30")
	require.NoError(t, err)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "- Vase, $30")
	assert.Contains(t, prompt, "USER: do you have vases?")
	assert.Contains(t, prompt, "BOT: ok")
	assert.Contains(t, prompt, "- Order #1: 2x mug (NEW)")
	assert.Contains(t, prompt, "USER: blue ones?")
}

// Generator failure degrades to an apology reply; the error stays internal.
func TestRespond_ApologyOnProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream timeout")}
	store := newStubStore()
	eng := newTestEngine(provider, store, nil, nil)

	res, err := eng.Respond(context.Background(), "conv-1", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, KindPlainReply, res.Kind)
	assert.Equal(t, apologyText, res.Text)

	turns := store.savedTurns("conv-1")
	require.Len(t, turns, 2)
	assert.Equal(t, apologyText, turns[1].Content)
}

// A failed context load still produces a reply from whatever loaded.
func TestRespond_ProceedsOnContextLoadError(t *testing.T) {
	provider := &stubProvider{reply: "Welcome!"}
	store := newStubStore()
	store.loadErr = errors.New("db is down")
	eng := newTestEngine(provider, store, nil, nil)

	res, err := eng.Respond(context.Background(), "conv-1", "hi", "- Mug, $12")
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", res.Text)
}

func TestRespond_RateLimited(t *testing.T) {
	provider := &stubProvider{reply: "never reached"}
	store := newStubStore()
	eng := newTestEngine(provider, store, nil, deniedLimiter{})

	_, err := eng.Respond(context.Background(), "conv-1", "hi", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, adapters.ErrRateLimitExceeded)
	assert.Zero(t, provider.callCount())
}

// Identical prompts hit the cache instead of the generator.
func TestRespond_CachesGeneratorOutput(t *testing.T) {
	provider := &stubProvider{reply: "Sure! " + MarkerFetchOrders}
	store := newStubStore()
	store.noHistory = true
	eng := newTestEngine(provider, store, adapters.NewLRUCache(8), nil)

	ctx := context.Background()
	first, err := eng.Respond(ctx, "conv-1", "show my orders", "")
	require.NoError(t, err)
	second, err := eng.Respond(ctx, "conv-1", "show my orders", "")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, first, second)
	assert.Equal(t, KindFetchOrders, second.Kind)
	assert.Equal(t, "Sure!", second.Text)
}

func TestPlaceOrder(t *testing.T) {
	store := newStubStore()
	eng := newTestEngine(&stubProvider{}, store, nil, nil)

	id, err := eng.PlaceOrder(context.Background(), "conv-1", OrderDraft{
		CustomerName:    "Ana",
		CustomerContact: "+35560001122",
		Items:           "2x mug",
		Notes:           "gift wrap",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, store.orders, 1)
	assert.Equal(t, "NEW", store.orders[0].Status)
	assert.Equal(t, "Ana", store.orders[0].CustomerName)
	assert.False(t, store.orders[0].CreatedAt.IsZero())
}

func TestCancelOrder(t *testing.T) {
	store := newStubStore()
	eng := newTestEngine(&stubProvider{}, store, nil, nil)

	ctx := context.Background()
	id, err := eng.PlaceOrder(ctx, "conv-1", OrderDraft{Items: "1x vase"})
	require.NoError(t, err)

	require.NoError(t, eng.CancelOrder(ctx, id))
	assert.Equal(t, "CANCELLED", store.orders[0].Status)

	assert.Error(t, eng.CancelOrder(ctx, 999))
}

func TestListOrders(t *testing.T) {
	store := newStubStore()
	eng := newTestEngine(&stubProvider{}, store, nil, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := eng.PlaceOrder(ctx, "conv-1", OrderDraft{Items: fmt.Sprintf("%dx mug", i+1)})
		require.NoError(t, err)
	}

	orders, err := eng.ListOrders(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(3), orders[0].ID)
	assert.Equal(t, "3x mug", orders[0].Items)
	assert.Equal(t, "NEW", orders[0].Status)
}

func TestConfirmOrder_PersistsBotTurn(t *testing.T) {
	provider := &stubProvider{reply: "Thank you! Your order #5 is confirmed."}
	store := newStubStore()
	eng := newTestEngine(provider, store, nil, nil)

	res := eng.ConfirmOrder(context.Background(), "conv-1", ConfirmedOrder{
		ID:    5,
		Items: "2x mug",
		Phone: "+35560001122",
	}, "dakord, faleminderit")

	assert.Equal(t, KindConfirmation, res.Kind)
	assert.Equal(t, "Thank you! Your order #5 is confirmed.", res.Text)

	turns := store.savedTurns("conv-1")
	require.Len(t, turns, 1)
	assert.Equal(t, string(SenderBot), turns[0].Sender)
	assert.Equal(t, res.Text, turns[0].Content)
}

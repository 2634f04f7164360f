package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hexlane/convomart/cmart/config"
	"github.com/hexlane/convomart/cmart/engine/adapters"
	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// Factory creates and wires an Engine from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // optional; nil disables persistence
	logger zerolog.Logger
}

func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, db: db, logger: logger}
}

// CreateEngine builds a fully wired Engine. Missing generator credentials are
// the one fatal misconfiguration; everything downstream degrades instead.
func (f *Factory) CreateEngine() (*Engine, error) {
	provider, err := f.createProvider()
	if err != nil {
		return nil, err
	}

	store, orders := f.createStores()

	opts := ports.Options{
		MaxNewTokens: f.cfg.LLM.MaxNewTokens,
		Temperature:  f.cfg.LLM.Temperature,
		TopP:         f.cfg.LLM.TopP,
	}

	builder := NewPromptBuilder(f.cfg.Bot.ShopName, f.cfg.Bot.ReplyLanguage)
	parser := NewResponseParser(f.logger)
	confirm := NewConfirmationRenderer(provider, opts, f.logger)

	return NewEngine(
		provider,
		builder,
		parser,
		confirm,
		store,
		orders,
		f.createCache(),
		f.createRateLimiter(),
		f.createTracer(),
		f.logger,
		opts,
		f.cfg.Engine.CacheTTLSeconds,
	), nil
}

func (f *Factory) createProvider() (ports.Provider, error) {
	switch f.cfg.LLM.Provider {
	case "openai":
		if f.cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is not set")
		}
		return adapters.NewOpenAIProvider(f.cfg.LLM.APIKey, f.cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", f.cfg.LLM.Provider)
	}
}

func (f *Factory) createStores() (ports.ConversationStore, ports.OrderStore) {
	if f.db == nil {
		s := &noOpStore{}
		return s, s
	}
	s := adapters.NewLibSQLStore(f.db)
	return s, s
}

func (f *Factory) createCache() ports.Cache {
	if !f.cfg.Engine.CacheEnabled {
		return &noOpCache{}
	}
	return adapters.NewLRUCache(f.cfg.Engine.CacheCapacity)
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.Engine.RateLimitEnabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(f.cfg.Engine.RateLimitCapacity, f.cfg.Engine.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Engine.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

// No-op fallbacks for disabled or absent infrastructure.

type noOpCache struct{}

func (*noOpCache) Get(context.Context, string) ([]byte, bool)      { return nil, false }
func (*noOpCache) Set(context.Context, string, []byte, int) error  { return nil }
func (*noOpCache) Delete(context.Context, string) error            { return nil }

type noOpRateLimiter struct{}

func (*noOpRateLimiter) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

type noOpTracer struct{}

func (*noOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (*noOpTracer) Event(context.Context, string, map[string]any) {}

type noOpStore struct{}

func (*noOpStore) SaveTurn(context.Context, string, ports.Turn) error { return nil }
func (*noOpStore) LoadRecent(context.Context, string, int) ([]ports.Turn, error) {
	return nil, nil
}
func (*noOpStore) SaveOrder(context.Context, ports.OrderRecord) (int64, error) { return 0, nil }
func (*noOpStore) RecentOrders(context.Context, string, int) ([]ports.OrderRecord, error) {
	return nil, nil
}
func (*noOpStore) CancelOrder(context.Context, int64) error { return nil }

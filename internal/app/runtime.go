package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanpawarit/research-agent/internal/agent/graph"
	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
	"github.com/tanpawarit/research-agent/internal/agent/llm"
	"github.com/tanpawarit/research-agent/internal/agent/memory"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/agent/repo"
	"github.com/tanpawarit/research-agent/internal/agent/search"
	"github.com/tanpawarit/research-agent/internal/config"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// Runtime owns the agent and every client it was built from.
type Runtime struct {
	Runner  *graph.Runner
	closers []func() error
}

// Close releases store and vector database connections.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildRuntime wires providers, tools, the conversation store and the graph from cfg.
func BuildRuntime(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	rt := &Runtime{}
	defer func() {
		if err != nil {
			if closeErr := rt.Close(); closeErr != nil {
				logx.Warn().Err(closeErr).Msg("Failed to release partially built runtime")
			}
		}
	}()

	variant := model.ParseVariant(cfg.Agent.Variant)

	conversations, err := rt.buildConversationRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}
	chatModels, err := provider.NewChatModels(ctx, cfg.Research, cfg.Summary)
	if err != nil {
		return nil, err
	}
	structured, err := provider.NewStructuredGenerator(cfg.Summary.Model, cfg.Summary.Temperature)
	if err != nil {
		return nil, err
	}

	store, err := rt.buildMemory(provider, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := tools.NewRegistry(tools.Deps{
		Variant:    variant,
		Searcher:   search.NewClient(cfg.Search),
		Summarizer: graph.NewWebpageSummarizer(structured),
		Memory:     store,
		MemoryTopK: cfg.Memory.TopK,
	})
	if err != nil {
		return nil, err
	}

	runner, err := graph.BuildRunner(ctx, graph.Config{
		Variant: variant,
		Limits: nodes.Limits{
			MaxToolResults: cfg.Agent.ToolMaxResults,
			RecursionLimit: cfg.Agent.RecursionLimit,
		},
		ToolsSequential:     cfg.Agent.ToolsSequential,
		DefaultConversation: cfg.Agent.DefaultConversation,
		ResearchModel:       chatModels.Research,
		ResearchModelName:   chatModels.ResearchModelName,
		SummaryModel:        chatModels.Summary,
		SummaryModelName:    chatModels.SummaryModelName,
		CompressMaxTokens:   chatModels.CompressMaxTokens,
		Tools:               registry,
		ConversationRepo:    conversations,
		MemoryEnabled:       store != nil,
	})
	if err != nil {
		return nil, fmt.Errorf("build research graph: %w", err)
	}
	rt.Runner = runner

	logx.Info().
		Str("provider", provider.Name()).
		Str("variant", string(variant)).
		Str("store", cfg.StoreBackend()).
		Bool("memory", store != nil).
		Msg("Runtime ready")
	return rt, nil
}

// buildMemory returns nil when memory is disabled.
func (rt *Runtime) buildMemory(provider *llm.Provider, cfg config.AppConfig) (memory.Store, error) {
	if !cfg.Memory.Enabled {
		return nil, nil
	}
	embedder, err := provider.NewEmbedder(cfg.Memory.EmbeddingModel, cfg.Memory.Dimensions)
	if err != nil {
		return nil, err
	}
	client, err := cfg.Qdrant.New()
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Close)
	return memory.NewQdrantStore(client, embedder, cfg.Memory), nil
}

func (rt *Runtime) buildConversationRepo(ctx context.Context, cfg config.AppConfig) (model.ConversationRepository, error) {
	switch cfg.StoreBackend() {
	case config.StoreRedis:
		ttl, err := cfg.ConversationTTL()
		if err != nil {
			return nil, err
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise redis client: %w", err)
		}
		rt.closers = append(rt.closers, rdb.Close)
		return repo.NewRedisConversationRepository(rdb, ttl), nil

	case config.StoreSQLite:
		db, err := cfg.SQLite.Open(ctx)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		return repo.NewSQLiteConversationRepository(ctx, db)

	default:
		return repo.NewMemoryConversationRepository(), nil
	}
}

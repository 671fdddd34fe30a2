package graph

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/graph/conversations"
	"github.com/tanpawarit/research-agent/internal/agent/graph/nodes"
	"github.com/tanpawarit/research-agent/internal/agent/graph/prompts"
	"github.com/tanpawarit/research-agent/internal/agent/graph/tools"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

const graphName = "research_agent"

// Config holds everything needed to compose the research graph end-to-end.
type Config struct {
	Variant             model.Variant
	Limits              nodes.Limits
	ToolsSequential     bool
	DefaultConversation string

	// ResearchModel must accept tool bindings; SummaryModel is used for compression.
	ResearchModel     einomodel.ChatModel
	ResearchModelName string
	SummaryModel      einomodel.BaseChatModel
	SummaryModelName  string
	CompressMaxTokens int

	Tools            *tools.Registry
	ConversationRepo model.ConversationRepository
	MemoryEnabled    bool
}

// GraphBuilder handles the construction of the research graph
type GraphBuilder struct {
	config *Config
	system prompts.SystemConfig
	graph  *compose.Graph[[]*schema.Message, *schema.Message]
}

// BuildRunner validates cfg, builds and compiles the graph and returns a Runner.
func BuildRunner(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Variant == "" {
		cfg.Variant = model.VariantResearch
	}
	if cfg.DefaultConversation == "" {
		cfg.DefaultConversation = "default"
	}

	system := prompts.SystemConfig{
		MemoryEnabled: cfg.MemoryEnabled,
		MaxToolCalls:  cfg.Limits.MaxToolResults,
	}

	runnable, err := BuildGraph(ctx, &cfg, system)
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Variant, func(ctx context.Context) (string, error) {
		return prompts.RenderSimpleSystem(ctx, system)
	})

	logx.Debug().Str("variant", string(cfg.Variant)).Msg("Research graph built successfully")
	return &Runner{
		runnable:            runnable,
		mm:                  mm,
		variant:             cfg.Variant,
		defaultConversation: cfg.DefaultConversation,
	}, nil
}

// BuildGraph constructs and returns the compiled research graph
func BuildGraph(ctx context.Context, config *Config, system prompts.SystemConfig) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ResearchModel == nil {
		return nil, fmt.Errorf("research model is not initialized")
	}
	if config.Variant == model.VariantResearch && config.SummaryModel == nil {
		return nil, fmt.Errorf("summary model is required for the research variant")
	}
	if config.Tools == nil {
		return nil, fmt.Errorf("tool registry is nil")
	}

	variant := config.Variant
	builder := &GraphBuilder{
		config: config,
		system: system,
		graph: compose.NewGraph[[]*schema.Message, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				if s := stateFromContext(ctx); s != nil {
					return s
				}
				return &model.AppState{Variant: variant}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the registered tool schemas to the research model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := b.config.Tools.Infos(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ResearchModel.BindTools(toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to research model")
		return fmt.Errorf("failed to bind tools to research model: %w", err)
	}

	logx.Debug().Int("tool_count", len(toolInfos)).Msg("Successfully bound tools to research model")
	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	err := b.graph.AddLambdaNode(nodes.NodeModel,
		nodes.NewModelNode(b.config.ResearchModel),
		compose.WithNodeName(nodes.NodeModel),
		compose.WithStatePreHandler(nodes.NewModelPreHandler(b.system)),
		compose.WithStatePostHandler(nodes.NewModelPostHandler(b.config.ResearchModelName)),
	)
	if err != nil {
		return fmt.Errorf("error adding model node: %w", err)
	}

	err = b.graph.AddLambdaNode(nodes.NodeTools,
		nodes.NewToolsNode(b.config.Tools, b.config.ToolsSequential),
		compose.WithNodeName(nodes.NodeTools),
		compose.WithStatePreHandler(nodes.NewToolsPreHandler()),
		compose.WithStatePostHandler(nodes.NewToolsPostHandler()),
	)
	if err != nil {
		return fmt.Errorf("error adding tools node: %w", err)
	}

	if b.config.Variant == model.VariantSimple {
		return nil
	}

	err = b.graph.AddLambdaNode(nodes.NodeCompress,
		nodes.NewCompressNode(b.config.SummaryModel, b.config.CompressMaxTokens),
		compose.WithNodeName(nodes.NodeCompress),
		compose.WithStatePreHandler(nodes.NewCompressPreHandler()),
		compose.WithStatePostHandler(nodes.NewCompressPostHandler(b.config.SummaryModelName)),
	)
	if err != nil {
		return fmt.Errorf("error adding compress node: %w", err)
	}
	return nil
}

// addEdges creates the fixed connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeModel},
		{nodes.NodeTools, nodes.NodeModel},
	}
	if b.config.Variant != model.VariantSimple {
		edges = append(edges, [2]string{nodes.NodeCompress, compose.END})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the conditional routing after the model
func (b *GraphBuilder) addBranches() error {
	finish := nodes.NodeCompress
	if b.config.Variant == model.VariantSimple {
		finish = compose.END
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewModelBranchCondition(b.config.Variant, b.config.Limits),
		map[string]bool{
			nodes.NodeTools: true,
			finish:          true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	// The branch condition enforces the recursion limit; this is a backstop
	// against a misbehaving branch.
	limit := b.config.Limits.RecursionLimit
	if limit <= 0 {
		limit = nodes.DefaultRecursionLimit
	}

	runnable, err := b.graph.Compile(ctx,
		compose.WithMaxRunSteps(limit*2+10),
		compose.WithGraphName(graphName),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

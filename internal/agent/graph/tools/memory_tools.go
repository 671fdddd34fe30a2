package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/memory"
)

const SavedToMemoryMessage = "Information saved to memory successfully"

type SaveToMemoryInput struct {
	Information string `json:"information"`
}

type RetrieveFromMemoryInput struct {
	Query string `json:"query"`
}

func createSaveToMemoryTool(store memory.Store) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: string(ToolSaveToMemory),
			Desc: "Save important information to long-term memory for future reference",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"information": {
					Type:     schema.String,
					Desc:     "The information to save to memory",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SaveToMemoryInput) (string, error) {
			if strings.TrimSpace(in.Information) == "" {
				return "", adapterFailure(errors.New("information is required"))
			}
			if err := store.Save(ctx, in.Information); err != nil {
				return "", adapterFailure(err)
			}
			return SavedToMemoryMessage, nil
		},
	)
}

func createRetrieveFromMemoryTool(store memory.Store, topK int) tool.InvokableTool {
	if topK <= 0 {
		topK = 3
	}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: string(ToolRetrieveFromMemory),
			Desc: "Retrieve relevant information from memory based on the query",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "The query to search for in memory",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RetrieveFromMemoryInput) (string, error) {
			if strings.TrimSpace(in.Query) == "" {
				return "", adapterFailure(errors.New("query is required"))
			}
			texts, err := store.Retrieve(ctx, in.Query, topK)
			if err != nil {
				return "", adapterFailure(err)
			}
			if texts == nil {
				texts = []string{}
			}
			b, err := json.Marshal(texts)
			if err != nil {
				return "", adapterFailure(fmt.Errorf("marshal memories: %w", err))
			}
			return string(b), nil
		},
	)
}

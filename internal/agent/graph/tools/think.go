package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type ThinkInput struct {
	Reflection string `json:"reflection"`
}

func createThinkTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: string(ToolThink),
			Desc: "Tool for strategic reflection on research progress and decision-making. Use this tool after each search to analyze results and plan next steps systematically.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reflection": {
					Type:     schema.String,
					Desc:     "Your detailed reflection on research progress, findings, gaps, and next steps",
					Required: true,
				},
			}),
		},
		func(_ context.Context, in *ThinkInput) (string, error) {
			return "Reflection recorded: " + in.Reflection, nil
		},
	)
}

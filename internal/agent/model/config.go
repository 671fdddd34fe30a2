package model

import (
	"strings"
	"time"
)

// ================ Config ================

// Variant selects the shape of the orchestration graph.
type Variant string

const (
	// VariantResearch bounds the tool loop, re-adds the system prompt on every
	// model call and finishes with a compression step.
	VariantResearch Variant = "research"
	// VariantSimple stores the system prompt once and terminates as soon as the
	// model stops requesting tools.
	VariantSimple Variant = "simple"
)

// ParseVariant normalises v, defaulting to VariantResearch.
func ParseVariant(v string) Variant {
	if Variant(strings.ToLower(strings.TrimSpace(v))) == VariantSimple {
		return VariantSimple
	}
	return VariantResearch
}

type AgentConfig struct {
	Variant             string `envconfig:"AGENT_VARIANT" default:"research"`
	ToolMaxResults      int    `envconfig:"AGENT_TOOL_MAX_RESULTS" default:"10"`
	RecursionLimit      int    `envconfig:"AGENT_RECURSION_LIMIT" default:"25"`
	ToolsSequential     bool   `envconfig:"AGENT_TOOLS_SEQUENTIAL" default:"false"`
	DefaultConversation string `envconfig:"AGENT_DEFAULT_CONVERSATION" default:"default"`
}

type ProviderConfig struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type ResearchModelConfig struct {
	Model       string  `envconfig:"RESEARCH_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESEARCH_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"RESEARCH_TEMPERATURE" default:"0"`
}

type SummaryModelConfig struct {
	Model             string  `envconfig:"SUMMARY_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens         int     `envconfig:"SUMMARY_MAX_TOKENS" default:"2000"`
	Temperature       float32 `envconfig:"SUMMARY_TEMPERATURE" default:"0"`
	CompressMaxTokens int     `envconfig:"COMPRESS_MAX_TOKENS" default:"8000"`
}

type SearchConfig struct {
	APIKey            string        `envconfig:"TAVILY_API_KEY"`
	BaseURL           string        `envconfig:"TAVILY_BASE_URL" default:"https://api.tavily.com"`
	MaxResults        int           `envconfig:"TAVILY_MAX_RESULTS" default:"3"`
	Topic             string        `envconfig:"TAVILY_TOPIC" default:"general"`
	IncludeRawContent bool          `envconfig:"TAVILY_INCLUDE_RAW_CONTENT" default:"true"`
	Timeout           time.Duration `envconfig:"TAVILY_TIMEOUT" default:"30s"`
}

type MemoryConfig struct {
	Enabled        bool   `envconfig:"MEMORY_ENABLED" default:"true"`
	Collection     string `envconfig:"MEMORY_COLLECTION" default:"research-agent-memory"`
	Namespace      string `envconfig:"MEMORY_NAMESPACE" default:"research-agent"`
	TopK           int    `envconfig:"MEMORY_TOP_K" default:"3"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Dimensions     int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
}

type ConversationConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
	// TTL of persisted conversations; "0" keeps them forever.
	TTL string `envconfig:"CONVERSATION_TTL" default:"0"`
}

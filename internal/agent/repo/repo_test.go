package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/pkg/sqlite"
)

func sampleHistory() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("You are a helpful research assistant."),
		schema.UserMessage("What is the capital of France?"),
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: "tavily_search", Arguments: `{"query":"capital of France"}`},
		}}),
		schema.ToolMessage(`[{"title":"France","url":"https://x/france"}]`, "call_1", schema.WithToolName("tavily_search")),
		schema.AssistantMessage("The capital of France is Paris.", nil),
	}
}

func newRedisRepo(t *testing.T, ttl time.Duration) (*RedisConversationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisConversationRepository(rdb, ttl), mr
}

func newSQLiteRepo(t *testing.T) *SQLiteConversationRepository {
	t.Helper()
	cfg := sqlite.Config{Path: filepath.Join(t.TempDir(), "conversations.db")}
	db, err := cfg.Open(context.Background())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	r, err := NewSQLiteConversationRepository(context.Background(), db)
	if err != nil {
		t.Fatalf("new sqlite repo: %v", err)
	}
	return r
}

func repositories(t *testing.T) map[string]model.ConversationRepository {
	redisRepo, _ := newRedisRepo(t, 0)
	return map[string]model.ConversationRepository{
		"memory": NewMemoryConversationRepository(),
		"redis":  redisRepo,
		"sqlite": newSQLiteRepo(t),
	}
}

func TestRepositoriesRoundTripPreservesOrderAndContent(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleHistory()

			if _, err := r.Save(ctx, "conv-1", want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := r.Load(ctx, "conv-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got == nil {
				t.Fatalf("checkpoint missing after save")
			}
			if len(got.Messages) != len(want) {
				t.Fatalf("message count mismatch: got=%d want=%d", len(got.Messages), len(want))
			}
			for i := range want {
				g, w := got.Messages[i], want[i]
				if g.Role != w.Role || g.Content != w.Content || g.ToolCallID != w.ToolCallID || g.ToolName != w.ToolName {
					t.Fatalf("message %d mismatch: got=%+v want=%+v", i, g, w)
				}
				if len(g.ToolCalls) != len(w.ToolCalls) {
					t.Fatalf("message %d tool calls mismatch: got=%d want=%d", i, len(g.ToolCalls), len(w.ToolCalls))
				}
				for j := range w.ToolCalls {
					if g.ToolCalls[j].ID != w.ToolCalls[j].ID || g.ToolCalls[j].Function.Arguments != w.ToolCalls[j].Function.Arguments {
						t.Fatalf("message %d tool call %d mismatch", i, j)
					}
				}
			}
		})
	}
}

func TestRepositoriesStepStartsAtMinusOneAndIncrements(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for want := -1; want <= 1; want++ {
				cp, err := r.Save(ctx, "conv-steps", sampleHistory()[:2])
				if err != nil {
					t.Fatalf("save: %v", err)
				}
				if cp.Step != want {
					t.Fatalf("step mismatch: got=%d want=%d", cp.Step, want)
				}
			}
			loaded, err := r.Load(ctx, "conv-steps")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Step != 1 {
				t.Fatalf("loaded step mismatch: got=%d want=1", loaded.Step)
			}
		})
	}
}

func TestRepositoriesLoadMissingAndDelete(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cp, err := r.Load(ctx, "nope")
			if err != nil || cp != nil {
				t.Fatalf("missing conversation: got=%+v err=%v", cp, err)
			}

			if _, err := r.Save(ctx, "conv-del", sampleHistory()); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := r.Delete(ctx, "conv-del"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			cp, err = r.Load(ctx, "conv-del")
			if err != nil || cp != nil {
				t.Fatalf("conversation survived delete: got=%+v err=%v", cp, err)
			}

			cp, err = r.Save(ctx, "conv-del", sampleHistory())
			if err != nil {
				t.Fatalf("save after delete: %v", err)
			}
			if cp.Step != model.FirstCheckpointStep {
				t.Fatalf("step after delete mismatch: got=%d want=%d", cp.Step, model.FirstCheckpointStep)
			}
		})
	}
}

func TestMemoryRepositoryLastWriteWins(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	first := sampleHistory()[:2]
	second := sampleHistory()[:3]
	if _, err := r.Save(ctx, "c", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := r.Save(ctx, "c", second); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := r.Load(ctx, "c")
	if len(got.Messages) != 3 {
		t.Fatalf("last write did not win: got=%d messages", len(got.Messages))
	}

	// Mutating the loaded slice must not affect the stored checkpoint.
	got.Messages = append(got.Messages[:0], schema.UserMessage("x"))
	again, _ := r.Load(ctx, "c")
	if again.Messages[0].Role != schema.System {
		t.Fatalf("stored history was aliased")
	}
}

func TestRedisRepositoryAppliesTTL(t *testing.T) {
	r, mr := newRedisRepo(t, time.Hour)
	if _, err := r.Save(context.Background(), "ttl", sampleHistory()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(r.conversationKey("ttl")); ttl != time.Hour {
		t.Fatalf("ttl mismatch: got=%v want=%v", ttl, time.Hour)
	}
}

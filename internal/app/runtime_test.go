package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tanpawarit/research-agent/internal/config"
	pkgredis "github.com/tanpawarit/research-agent/pkg/redis"
)

func TestBuildRuntimeReturnsErrorForEmptyConfig(t *testing.T) {
	t.Parallel()

	rt, err := BuildRuntime(context.Background(), config.AppConfig{})
	if err == nil {
		t.Fatalf("expected error for empty config")
	}
	if rt != nil {
		t.Fatalf("runtime mismatch: got=%v want=nil", rt)
	}
}

func TestBuildRuntimeClosesStoreWhenProviderFails(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := config.AppConfig{
		Redis: pkgredis.Config{URL: "redis://" + mr.Addr() + "/0", DialTimeout: time.Second},
	}
	cfg.Conversation.Backend = config.StoreRedis

	rt, err := BuildRuntime(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("error mismatch: got=%v want GEMINI_API_KEY error", err)
	}
	if rt != nil {
		t.Fatalf("runtime mismatch: got=%v want=nil", rt)
	}

	deadline := time.Now().Add(2 * time.Second)
	for mr.CurrentConnectionCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("redis connections left open: got=%d want=0", mr.CurrentConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBuildRuntimeReportsUnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := config.AppConfig{
		Redis: pkgredis.Config{URL: "redis://127.0.0.1:1/0", DialTimeout: 200 * time.Millisecond},
	}
	cfg.Conversation.Backend = config.StoreRedis

	if _, err := BuildRuntime(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}

func TestRuntimeCloseRunsClosersInReverse(t *testing.T) {
	t.Parallel()

	var order []string
	boom := errors.New("boom")
	rt := &Runtime{closers: []func() error{
		func() error { order = append(order, "first"); return nil },
		func() error { order = append(order, "second"); return boom },
	}}

	if err := rt.Close(); !errors.Is(err, boom) {
		t.Fatalf("close error mismatch: got=%v want=%v", err, boom)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Fatalf("close order mismatch: got=%q want=%q", strings.Join(order, ","), "second,first")
	}
}

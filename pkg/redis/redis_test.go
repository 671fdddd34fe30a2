package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNewPingsServer(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := Config{URL: "redis://" + mr.Addr() + "/0", ReadTimeout: time.Second, PoolSize: 2}

	client, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()

	if got := client.Options().PoolSize; got != 2 {
		t.Fatalf("pool size mismatch: got=%d want=%d", got, 2)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	cfg := Config{URL: "not-a-url"}
	if _, err := cfg.New(context.Background()); err == nil {
		t.Fatalf("expected error for bad url")
	}
}

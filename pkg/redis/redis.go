package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is bound from REDIS_* variables.
type Config struct {
	URL          string        `split_words:"true" default:"redis://localhost:6379/0"`
	ReadTimeout  time.Duration `split_words:"true" default:"3s"`
	WriteTimeout time.Duration `split_words:"true" default:"3s"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	PoolSize     int           `split_words:"true" default:"0"`
}

// New connects to URL and pings the server.
func (r *Config) New(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	if r.ReadTimeout > 0 {
		opts.ReadTimeout = r.ReadTimeout
	}
	if r.WriteTimeout > 0 {
		opts.WriteTimeout = r.WriteTimeout
	}
	if r.DialTimeout > 0 {
		opts.DialTimeout = r.DialTimeout
	}
	if r.PoolSize > 0 {
		opts.PoolSize = r.PoolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

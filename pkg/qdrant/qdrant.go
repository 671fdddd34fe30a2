package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

type Config struct {
	Host   string `envconfig:"QDRANT_HOST" default:"localhost"`
	Port   int    `envconfig:"QDRANT_PORT" default:"6334"`
	APIKey string `envconfig:"QDRANT_API_KEY"`
	UseTLS bool   `envconfig:"QDRANT_USE_TLS" default:"false"`
}

func (c *Config) New() (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", c.Host, c.Port, err)
	}
	return client, nil
}

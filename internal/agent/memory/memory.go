// Package memory is the agent's long-term vector memory backed by Qdrant.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/tanpawarit/research-agent/internal/agent/llm"
	"github.com/tanpawarit/research-agent/internal/agent/model"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// Store saves texts and returns the most similar ones for a query.
type Store interface {
	Save(ctx context.Context, text string) error
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// pointStore is the subset of *qdrant.Client the memory store uses.
type pointStore interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// QdrantStore keeps memories as points in one collection, partitioned by a
// namespace payload field.
type QdrantStore struct {
	client     pointStore
	embedder   llm.Embedder
	collection string
	namespace  string

	// ensured is set only once the collection is known to exist.
	ensureMu sync.Mutex
	ensured  bool
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore creates a store over client.
func NewQdrantStore(client *qdrant.Client, embedder llm.Embedder, cfg model.MemoryConfig) *QdrantStore {
	return newQdrantStore(client, embedder, cfg)
}

func newQdrantStore(client pointStore, embedder llm.Embedder, cfg model.MemoryConfig) *QdrantStore {
	return &QdrantStore{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		namespace:  cfg.Namespace,
	}
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()

	if s.ensured {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", s.collection, err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.embedder.Dimensions()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %q: %w", s.collection, err)
		}
		logx.Info().Str("collection", s.collection).Int("dimensions", s.embedder.Dimensions()).Msg("Created memory collection")
	}
	s.ensured = true
	return nil
}

// Save embeds text and upserts it as a new point.
func (s *QdrantStore) Save(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("memory text is empty")
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":   text,
				"namespace": s.namespace,
				"source":    "agent",
				"timestamp": time.Now().UnixMilli(),
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}

// Retrieve returns up to k stored texts most similar to query, best first.
func (s *QdrantStore) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 3
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("namespace", s.namespace)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}

	texts := make([]string, 0, len(points))
	for _, p := range points {
		if content, ok := payloadString(p.GetPayload(), "content"); ok {
			texts = append(texts, content)
		}
	}
	return texts, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) (string, bool) {
	if val, ok := payload[key]; ok {
		if str := val.GetStringValue(); str != "" {
			return str, true
		}
	}
	return "", false
}

// Package memory provides the long-term vector memory collaborator backed
// by chromem-go, an embeddable pure-Go vector database with persistence.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const defaultCollection = "agent_memory"

// Config configures the vector memory store.
type Config struct {
	// Path is the directory for persistent storage.
	Path string

	// Collection is the collection name. Default: "agent_memory".
	Collection string

	// OpenAIKey, when set, switches to OpenAI embeddings. Otherwise a
	// deterministic local embedder is used, which keeps offline demos and
	// tests working without credentials.
	OpenAIKey string
}

// Store is a persistent semantic memory over past runs.
type Store struct {
	db     *chromem.DB
	col    *chromem.Collection
	logger *zap.Logger
}

// New opens (or creates) the persistent memory store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("opening memory database: %w", err)
	}

	embedding := localEmbedding()
	if cfg.OpenAIKey != "" {
		embedding = chromem.NewEmbeddingFuncOpenAI(cfg.OpenAIKey, chromem.EmbeddingModelOpenAI3Small)
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, embedding)
	if err != nil {
		return nil, fmt.Errorf("opening memory collection: %w", err)
	}

	logger.Info("memory store ready",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
	)
	return &Store{db: db, col: col, logger: logger}, nil
}

// Add stores one document. Records are fire-and-forget from the engine's
// point of view; callers log failures instead of aborting runs.
func (s *Store) Add(ctx context.Context, doc string, metadata map[string]string) error {
	err := s.col.AddDocument(ctx, chromem.Document{
		ID:       uuid.NewString(),
		Content:  doc,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("adding memory document: %w", err)
	}
	s.logger.Debug("added memory document")
	return nil
}

// Search returns the contents of up to limit semantically similar documents
// joined into one opaque context string. An empty collection yields "".
func (s *Store) Search(ctx context.Context, query string, limit int) (string, error) {
	count := s.col.Count()
	if count == 0 {
		return "", nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return "", fmt.Errorf("querying memory: %w", err)
	}

	docs := make([]string, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Content)
	}
	return strings.Join(docs, "\n"), nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Local Embedding
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

const localEmbeddingDim = 256

// localEmbedding is a deterministic token-hashing embedder. It is not a
// semantic model; it only gives stable, normalized vectors so similarity
// search works offline.
func localEmbedding() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec := make([]float32, localEmbeddingDim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%localEmbeddingDim]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	}
}

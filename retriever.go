package arbor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Document is one retrieved context fragment.
type Document struct {
	Content string
	Score   float64
}

// Retriever is the vector-similarity retrieval contract the reasoning
// arrows consume. The index implementation and distance metric are
// external; arbor ships an in-memory implementation and an archive-backed
// one for convenience.
type Retriever interface {
	// GetSimilarDocuments returns up to count documents similar to the
	// query, embedded with the named embedding model.
	GetSimilarDocuments(ctx context.Context, model, query string, count int) ([]Document, error)
}

// VectorRetriever is an in-memory cosine-similarity retriever. Documents
// are embedded at index time; per-model embedders allow the caller to pick
// the embedding space at query time.
type VectorRetriever struct {
	mu        sync.RWMutex
	embedders map[string]Embedder
	fallback  Embedder
	docs      []indexedDoc
}

type indexedDoc struct {
	content   string
	embedding Vector
	model     string
}

// NewVectorRetriever creates a retriever with a default embedder.
func NewVectorRetriever(defaultEmbedder Embedder) *VectorRetriever {
	return &VectorRetriever{
		embedders: make(map[string]Embedder),
		fallback:  defaultEmbedder,
	}
}

// RegisterEmbedder associates an embedding model name with an embedder.
func (r *VectorRetriever) RegisterEmbedder(model string, e Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[model] = e
}

// Index embeds and stores a document under the given embedding model.
func (r *VectorRetriever) Index(ctx context.Context, model, content string) error {
	embedder, err := r.embedderFor(model)
	if err != nil {
		return err
	}

	embedding, err := embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("retriever: failed to embed document: %w", err)
	}

	r.mu.Lock()
	r.docs = append(r.docs, indexedDoc{content: content, embedding: embedding, model: model})
	r.mu.Unlock()
	return nil
}

// GetSimilarDocuments implements Retriever.
func (r *VectorRetriever) GetSimilarDocuments(ctx context.Context, model, query string, count int) ([]Document, error) {
	if count <= 0 {
		return nil, nil
	}

	embedder, err := r.embedderFor(model)
	if err != nil {
		return nil, err
	}

	queryEmbedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: failed to embed query: %w", err)
	}
	qv := Vector(queryEmbedding)

	r.mu.RLock()
	scored := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if doc.model != model && doc.model != "" {
			continue
		}
		scored = append(scored, Document{
			Content: doc.content,
			Score:   doc.embedding.Cosine(qv),
		})
	}
	r.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > count {
		scored = scored[:count]
	}
	return scored, nil
}

func (r *VectorRetriever) embedderFor(model string) (Embedder, error) {
	r.mu.RLock()
	e, ok := r.embedders[model]
	r.mu.RUnlock()

	if ok {
		return e, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("retriever: no embedder for model %q: %w", model, ErrNoEmbedder)
}

var _ Retriever = (*VectorRetriever)(nil)

// ArchiveRetriever serves similarity queries from persisted event content,
// turning an Archive's pgvector search into retrieval context.
type ArchiveRetriever struct {
	archive  Archive
	embedder Embedder
}

// NewArchiveRetriever creates a retriever over the given archive.
func NewArchiveRetriever(archive Archive, embedder Embedder) *ArchiveRetriever {
	return &ArchiveRetriever{archive: archive, embedder: embedder}
}

// GetSimilarDocuments implements Retriever. The model parameter is ignored:
// the archive holds one embedding space, chosen when events were written.
func (r *ArchiveRetriever) GetSimilarDocuments(ctx context.Context, _, query string, count int) ([]Document, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("archive retriever: failed to embed query: %w", err)
	}

	events, err := r.archive.SearchEvents(ctx, embedding, count)
	if err != nil {
		return nil, fmt.Errorf("archive retriever: %w", err)
	}

	docs := make([]Document, len(events))
	for i, e := range events {
		docs[i] = Document{Content: e.Content}
	}
	return docs, nil
}

var _ Retriever = (*ArchiveRetriever)(nil)

package nodes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
	"github.com/ragqa/server/internal/vectorindex"
	logx "github.com/ragqa/server/pkg/logger"
)

// TopK is the number of documents handed to the reasoning stage.
const TopK = 1

// Retriever holds the indexed documents and answers nearest-neighbor queries.
// docs[i] is always stored at index slot i.
type Retriever struct {
	docEmbedder   embedding.Embedder
	queryEmbedder embedding.Embedder

	mu    sync.RWMutex
	docs  []model.Document
	index *vectorindex.Flat
}

// NewRetriever creates an empty retriever. Documents and queries may use
// different embedders as long as they produce vectors of the same space.
func NewRetriever(docEmbedder, queryEmbedder embedding.Embedder) (*Retriever, error) {
	if docEmbedder == nil || queryEmbedder == nil {
		return nil, fmt.Errorf("retriever embedders must not be nil")
	}
	return &Retriever{docEmbedder: docEmbedder, queryEmbedder: queryEmbedder}, nil
}

// AddDocument embeds doc and appends it to the index. It returns the document id,
// generating one when doc.ID is empty.
func (r *Retriever) AddDocument(ctx context.Context, doc model.Document) (string, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return "", errx.Validation(nil, "document content is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	vec, err := embedOne(ctx, r.docEmbedder, doc.Content)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		idx, err := vectorindex.NewFlat(len(vec))
		if err != nil {
			return "", errx.Internal(err, "create vector index")
		}
		r.index = idx
	}
	if _, err := r.index.Insert(vec); err != nil {
		return "", errx.Upstream(err, "embedding dimension does not match the index")
	}
	r.docs = append(r.docs, doc)

	logx.Debug().
		Str("document_id", doc.ID).
		Str("source", doc.SourceName).
		Int("documents", len(r.docs)).
		Msg("Document indexed")
	return doc.ID, nil
}

// RemoveDocument drops a document and its index slot. It reports whether the id was present.
func (r *Retriever) RemoveDocument(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.docs, func(d model.Document) bool { return d.ID == id })
	if i < 0 {
		return false
	}
	if err := r.index.Remove(i); err != nil {
		logx.Error().Err(err).Str("document_id", id).Msg("Index slot removal failed")
		return false
	}
	r.docs = slices.Delete(r.docs, i, i+1)
	return true
}

// Len returns the number of indexed documents.
func (r *Retriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Retrieve fills state.RetrievedDocs and state.SourceNames with the nearest
// document to state.Query. With no documents both are set to empty slices.
func (r *Retriever) Retrieve(ctx context.Context, state *model.WorkflowState) error {
	if r.Len() == 0 {
		state.RetrievedDocs = []string{}
		state.SourceNames = []string{}
		return nil
	}

	qvec, err := embedOne(ctx, r.queryEmbedder, state.Query)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := []string{}
	sources := []string{}
	if r.index != nil && r.index.Len() > 0 {
		neighbors, err := r.index.Search(qvec, TopK)
		if err != nil && !errors.Is(err, vectorindex.ErrEmpty) {
			return errx.Upstream(err, "nearest-neighbor search failed")
		}
		for _, n := range neighbors {
			d := r.docs[n.Slot]
			docs = append(docs, d.Content)
			sources = append(sources, d.SourceName)
		}
	}

	state.RetrievedDocs = docs
	state.SourceNames = sources
	return nil
}

func embedOne(ctx context.Context, emb embedding.Embedder, text string) ([]float64, error) {
	vecs, err := emb.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, errx.Wrap(asUpstream(err), "embedding failed")
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, errx.Upstream(fmt.Errorf("expected 1 embedding, got %d", len(vecs)), "embedding failed")
	}
	return vecs[0], nil
}

// asUpstream tags errors that carry no kind yet as upstream failures.
func asUpstream(err error) error {
	var app *errx.AppError
	if errors.As(err, &app) {
		return err
	}
	return errx.Upstream(err, "embedding provider error")
}

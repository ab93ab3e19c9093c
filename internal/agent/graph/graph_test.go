package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragqa/server/internal/agent/graph/nodes"
	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
	"github.com/ragqa/server/internal/documents"
	"github.com/ragqa/server/internal/metrics"
)

type keywordEmbedder struct {
	keywords []string
	err      error
}

func (e *keywordEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, len(e.keywords))
		for j, k := range e.keywords {
			if strings.Contains(strings.ToLower(t), k) {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

// echoChatModel answers with the context line of the system prompt.
type echoChatModel struct {
	err   error
	last  []*schema.Message
	calls int
}

func (m *echoChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.calls++
	m.last = input
	if m.err != nil {
		return nil, m.err
	}
	for _, line := range strings.Split(input[0].Content, "\n") {
		if ctx, ok := strings.CutPrefix(line, "Current Context: "); ok {
			if ctx == "" {
				return schema.AssistantMessage("I have no documents to answer from.", nil), nil
			}
			return schema.AssistantMessage("Based on the context: "+ctx, nil), nil
		}
	}
	return schema.AssistantMessage("", nil), nil
}

func (m *echoChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *keywordEmbedder, *echoChatModel) {
	t.Helper()
	emb := &keywordEmbedder{keywords: []string{"sky", "grass", "sea"}}
	cm := &echoChatModel{}

	retriever, err := nodes.NewRetriever(emb, emb)
	require.NoError(t, err)
	reasoner, err := nodes.NewReasoner(cm, "gemini-1.5-flash")
	require.NoError(t, err)

	p, err := NewPipeline(context.Background(), &GraphConfig{
		Retriever:   retriever,
		Reasoner:    reasoner,
		Metrics:     metrics.NewMetrics(),
		DefaultUser: "anonymous",
	})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2025, 3, 20, 14, 2, 14, 0, time.UTC) }
	return p, emb, cm
}

func TestExecuteReturnsClosestSource(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)

	_, err := p.AddDocument(ctx, model.Document{Content: "The sky is blue.", SourceName: "sky.txt"})
	require.NoError(t, err)

	ans, err := p.Execute(ctx, model.QueryInput{Query: "What color is the sky?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sky.txt"}, ans.Sources)
	assert.Contains(t, ans.Answer, "The sky is blue.")
}

func TestExecutePicksNearestOfMany(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)

	for name, content := range map[string]string{
		"grass.txt": "Grass is green.",
		"sea.txt":   "The sea is salty.",
		"sky.txt":   "The sky is blue.",
	} {
		_, err := p.AddDocument(ctx, model.Document{Content: content, SourceName: name})
		require.NoError(t, err)
	}

	ans, err := p.Execute(ctx, model.QueryInput{Query: "Why is the sea salty?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sea.txt"}, ans.Sources)
}

func TestExecuteEmptyCorpus(t *testing.T) {
	p, _, cm := newTestPipeline(t)

	ans, err := p.Execute(context.Background(), model.QueryInput{Query: "Who are you?"})
	require.NoError(t, err)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, "I have no documents to answer from.", ans.Answer)
	assert.Equal(t, 1, cm.calls)
}

func TestExecuteRendersUserAndTime(t *testing.T) {
	p, _, cm := newTestPipeline(t)

	_, err := p.Execute(context.Background(), model.QueryInput{Query: "hi", User: "alice"})
	require.NoError(t, err)
	assert.Contains(t, cm.last[0].Content, "Current User: alice")
	assert.Contains(t, cm.last[0].Content, "Current Time (UTC): 2025-03-20 14:02:14")

	_, err = p.Execute(context.Background(), model.QueryInput{Query: "hi"})
	require.NoError(t, err)
	assert.Contains(t, cm.last[0].Content, "Current User: anonymous")
}

func TestExecuteRejectsBlankQuery(t *testing.T) {
	p, _, cm := newTestPipeline(t)
	_, err := p.Execute(context.Background(), model.QueryInput{Query: "   "})
	assert.ErrorIs(t, err, errx.ErrValidation)
	assert.Zero(t, cm.calls)
}

func TestExecuteModelFailureIsUpstream(t *testing.T) {
	p, _, cm := newTestPipeline(t)
	cm.err = errors.New("service unavailable")

	_, err := p.Execute(context.Background(), model.QueryInput{Query: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrUpstream)
	assert.Contains(t, err.Error(), "workflow execution failed")
}

func TestExecuteEmbeddingFailureSkipsModel(t *testing.T) {
	ctx := context.Background()
	p, emb, cm := newTestPipeline(t)
	_, err := p.AddDocument(ctx, model.Document{Content: "The sky is blue.", SourceName: "sky.txt"})
	require.NoError(t, err)

	emb.err = errors.New("quota")
	_, err = p.Execute(ctx, model.QueryInput{Query: "sky?"})
	assert.ErrorIs(t, err, errx.ErrUpstream)
	assert.Zero(t, cm.calls)
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)

	id, err := p.AddDocument(ctx, model.Document{Content: "The sky is blue.", SourceName: "sky.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Documents())
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.IndexedDocuments))

	assert.True(t, p.RemoveDocument(id))
	assert.False(t, p.RemoveDocument(id))
	assert.Zero(t, p.Documents())
	assert.Equal(t, 0.0, testutil.ToFloat64(p.metrics.IndexedDocuments))

	ans, err := p.Execute(ctx, model.QueryInput{Query: "What color is the sky?"})
	require.NoError(t, err)
	assert.Empty(t, ans.Sources)
}

func TestReindexReplaysRepository(t *testing.T) {
	ctx := context.Background()
	repo := documents.NewMemoryRepository()
	sky, err := repo.Process(ctx, documents.Upload{Filename: "sky.txt", Content: []byte("The sky is blue.")})
	require.NoError(t, err)
	_, err = repo.Process(ctx, documents.Upload{Filename: "empty.txt", Content: []byte("")})
	require.NoError(t, err)
	_, err = repo.Process(ctx, documents.Upload{
		Filename: "grass.txt",
		Content:  []byte("Grass is green."),
		Metadata: map[string]any{"title": "Lawn notes"},
	})
	require.NoError(t, err)

	p, _, _ := newTestPipeline(t)
	n, err := p.Reindex(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p.Documents())

	ans, err := p.Execute(ctx, model.QueryInput{Query: "Is the grass green?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"grass.txt"}, ans.Sources)

	assert.True(t, p.RemoveDocument(sky.DocumentID), "reindexed documents keep their repository id")
}

func TestReindexManyPages(t *testing.T) {
	ctx := context.Background()
	repo := documents.NewMemoryRepository()
	for i := 0; i < reindexPageSize+5; i++ {
		_, err := repo.Process(ctx, documents.Upload{Filename: fmt.Sprintf("%d.txt", i), Content: []byte("sky")})
		require.NoError(t, err)
	}

	p, _, _ := newTestPipeline(t)
	n, err := p.Reindex(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, reindexPageSize+5, n)
}

func TestReindexStopsOnUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	repo := documents.NewMemoryRepository()
	_, err := repo.Process(ctx, documents.Upload{Filename: "sky.txt", Content: []byte("The sky is blue.")})
	require.NoError(t, err)

	p, emb, _ := newTestPipeline(t)
	emb.err = errors.New("quota")
	_, err = p.Reindex(ctx, repo)
	assert.ErrorIs(t, err, errx.ErrUpstream)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "a.pdf", SourceName(documents.Record{Title: "T", Metadata: map[string]any{"original_filename": "a.pdf"}}))
	assert.Equal(t, "T", SourceName(documents.Record{Title: "T"}))
}

func TestNewPipelineValidatesConfig(t *testing.T) {
	_, err := NewPipeline(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewPipeline(context.Background(), &GraphConfig{})
	assert.Error(t, err)
}

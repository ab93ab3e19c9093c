package nodes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragqa/server/internal/agent/model"
	"github.com/ragqa/server/internal/metrics"
)

// keywordEmbedder maps text to a one-hot-ish vector over a fixed keyword list.
type keywordEmbedder struct {
	keywords []string
	err      error

	mu    sync.Mutex
	calls [][]string
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords}
}

func (e *keywordEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, len(e.keywords))
		lower := strings.ToLower(t)
		for j, k := range e.keywords {
			if strings.Contains(lower, k) {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// fakeChatModel answers with a fixed reply and records its input.
type fakeChatModel struct {
	reply *schema.Message
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestFormatCopiesReasoningOutput(t *testing.T) {
	out := "The sky is blue."
	state := &model.WorkflowState{ReasoningOutput: &out}
	Format(state)
	require.NotNil(t, state.Response)
	assert.Equal(t, out, *state.Response)
}

func TestFormatFallback(t *testing.T) {
	state := &model.WorkflowState{}
	Format(state)
	require.NotNil(t, state.Response)
	assert.Equal(t, "I apologize, but I couldn't process your request.", *state.Response)
}

func TestFormatKeepsEmptyOutput(t *testing.T) {
	empty := ""
	state := &model.WorkflowState{ReasoningOutput: &empty}
	Format(state)
	assert.Equal(t, "", *state.Response)
}

func TestStageLambdaPassesStateThrough(t *testing.T) {
	ctx := context.Background()
	g := compose.NewGraph[*model.WorkflowState, *model.WorkflowState]()
	require.NoError(t, g.AddLambdaNode(NodeFormat, NewFormatNode(metrics.NewMetrics())))
	require.NoError(t, g.AddEdge(compose.START, NodeFormat))
	require.NoError(t, g.AddEdge(NodeFormat, compose.END))
	r, err := g.Compile(ctx)
	require.NoError(t, err)

	in := &model.WorkflowState{Query: "q"}
	out, err := r.Invoke(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "q", out.Query)
	assert.Equal(t, FallbackResponse, *out.Response)
}

func TestStageLambdaPropagatesError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	node := newStageLambda("failing", nil, func(context.Context, *model.WorkflowState) error { return boom })

	g := compose.NewGraph[*model.WorkflowState, *model.WorkflowState]()
	require.NoError(t, g.AddLambdaNode("failing", node))
	require.NoError(t, g.AddEdge(compose.START, "failing"))
	require.NoError(t, g.AddEdge("failing", compose.END))
	r, err := g.Compile(ctx)
	require.NoError(t, err)

	_, err = r.Invoke(ctx, &model.WorkflowState{})
	assert.ErrorIs(t, err, boom)
}

package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"

	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

// Gemini embedding task types. Documents and queries are embedded with
// different task types so the provider can optimise each side of the match.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// maxEmbedBatch is the provider's per-request content limit.
const maxEmbedBatch = 100

// GenAIEmbedder adapts the Gemini embeddings API to eino's Embedder.
type GenAIEmbedder struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEmbedder creates an embedder for one task type.
func NewGenAIEmbedder(client *genai.Client, modelName, taskType string) (*GenAIEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is nil")
	}
	if modelName == "" {
		return nil, fmt.Errorf("embedding model is empty")
	}
	return &GenAIEmbedder{client: client, model: modelName, taskType: taskType}, nil
}

// Namespace identifies the vector space this embedder produces.
func (e *GenAIEmbedder) Namespace() string {
	return e.model + "|" + e.taskType
}

func (e *GenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType: e.taskType,
		})
		if err != nil {
			logx.Error().Err(err).Str("model", e.model).Str("task_type", e.taskType).Msg("Embedding request failed")
			return nil, errx.Upstream(err, "embedding request failed")
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return nil, errx.Upstream(fmt.Errorf("expected %d embeddings, got %d", end-start, got), "embedding response malformed")
		}

		for _, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, errx.Upstream(fmt.Errorf("empty embedding values"), "embedding response malformed")
			}
			vec := make([]float64, len(emb.Values))
			for i, v := range emb.Values {
				vec[i] = float64(v)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

var _ embedding.Embedder = (*GenAIEmbedder)(nil)

package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/ragqa/server/internal/agent/graph/nodes"
	"github.com/ragqa/server/internal/agent/graph/observers"
	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
	"github.com/ragqa/server/internal/documents"
	"github.com/ragqa/server/internal/metrics"
	logx "github.com/ragqa/server/pkg/logger"
)

// reindexPageSize is how many index records are read per page during Reindex.
const reindexPageSize = 100

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Retriever   *nodes.Retriever
	Reasoner    *nodes.Reasoner
	Metrics     *metrics.Metrics
	DefaultUser string
}

// Pipeline runs queries through retrieve -> reason -> format and owns the
// retriever that documents are added to.
type Pipeline struct {
	retriever   *nodes.Retriever
	runnable    compose.Runnable[*model.WorkflowState, *model.WorkflowState]
	metrics     *metrics.Metrics
	defaultUser string
	now         func() time.Time
}

// NewPipeline builds and compiles the query graph.
func NewPipeline(ctx context.Context, config *GraphConfig) (*Pipeline, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Retriever == nil || config.Reasoner == nil {
		return nil, fmt.Errorf("retriever and reasoner are required")
	}

	runnable, err := buildGraph(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		retriever:   config.Retriever,
		runnable:    runnable,
		metrics:     config.Metrics,
		defaultUser: config.DefaultUser,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// buildGraph wires START -> retrieve -> reason -> format -> END and compiles it.
func buildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.WorkflowState, *model.WorkflowState], error) {
	g := compose.NewGraph[*model.WorkflowState, *model.WorkflowState]()

	if err := g.AddLambdaNode(nodes.NodeRetrieve, nodes.NewRetrieveNode(config.Retriever, config.Metrics), compose.WithNodeName(nodes.NodeRetrieve)); err != nil {
		return nil, fmt.Errorf("add retrieve node: %w", err)
	}
	if err := g.AddLambdaNode(nodes.NodeReason, nodes.NewReasonNode(config.Reasoner, config.Metrics), compose.WithNodeName(nodes.NodeReason)); err != nil {
		return nil, fmt.Errorf("add reason node: %w", err)
	}
	if err := g.AddLambdaNode(nodes.NodeFormat, nodes.NewFormatNode(config.Metrics), compose.WithNodeName(nodes.NodeFormat)); err != nil {
		return nil, fmt.Errorf("add format node: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodes.NodeRetrieve},
		{nodes.NodeRetrieve, nodes.NodeReason},
		{nodes.NodeReason, nodes.NodeFormat},
		{nodes.NodeFormat, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("ragqa"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// Execute answers one query. Each call runs on a fresh state.
func (p *Pipeline) Execute(ctx context.Context, in model.QueryInput) (*model.Answer, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, errx.Validation(nil, "query must not be empty")
	}
	if strings.TrimSpace(in.User) == "" {
		in.User = p.defaultUser
	}

	state := model.NewWorkflowState(in, p.now())
	out, err := p.runnable.Invoke(ctx, state, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, errx.Wrap(err, "workflow execution failed")
	}
	if out == nil {
		out = state
	}

	answer := nodes.FallbackResponse
	if out.Response != nil {
		answer = *out.Response
	}
	sources := out.SourceNames
	if sources == nil {
		sources = []string{}
	}

	ev := logx.Info().Str("user", in.User).Strs("sources", sources)
	if cost, ok := out.Metadata[nodes.UsageCostKey].(*model.UsageCost); ok && cost != nil {
		ev = ev.Int("total_tokens", cost.TotalTokens).Float64("total_cost_usd", cost.TotalCost)
	}
	ev.Msg("Query answered")

	return &model.Answer{Answer: answer, Sources: sources}, nil
}

// AddDocument indexes doc for retrieval and returns its id.
func (p *Pipeline) AddDocument(ctx context.Context, doc model.Document) (string, error) {
	id, err := p.retriever.AddDocument(ctx, doc)
	if err != nil {
		return "", err
	}
	p.observeSize()
	return id, nil
}

// RemoveDocument drops a document from retrieval. It reports whether it was indexed.
func (p *Pipeline) RemoveDocument(id string) bool {
	removed := p.retriever.RemoveDocument(id)
	if removed {
		p.observeSize()
	}
	return removed
}

// Documents returns the number of indexed documents.
func (p *Pipeline) Documents() int {
	return p.retriever.Len()
}

// DocumentSource is the part of the repository Reindex reads from.
type DocumentSource interface {
	List(ctx context.Context, skip, limit int) (documents.Page, error)
	Text(ctx context.Context, id string) (string, error)
}

// Reindex replays every stored document into the retriever in insertion order.
// Documents with no text are skipped; any other failure stops the replay.
func (p *Pipeline) Reindex(ctx context.Context, src DocumentSource) (int, error) {
	indexed := 0
	for skip := 0; ; skip += reindexPageSize {
		page, err := src.List(ctx, skip, reindexPageSize)
		if err != nil {
			return indexed, errx.Wrap(err, "list stored documents")
		}

		for _, rec := range page.Documents {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			text, err := src.Text(ctx, rec.DocumentID)
			if err != nil {
				return indexed, errx.Wrap(err, "read stored document text")
			}

			_, err = p.AddDocument(ctx, model.Document{
				ID:         rec.DocumentID,
				Content:    text,
				SourceName: SourceName(rec),
			})
			if errors.Is(err, errx.ErrValidation) {
				logx.Warn().Str("document_id", rec.DocumentID).Msg("Skipping stored document without text")
				continue
			}
			if err != nil {
				return indexed, errx.Wrap(err, "reindex stored document")
			}
			indexed++
		}

		if skip+len(page.Documents) >= page.Total || len(page.Documents) == 0 {
			break
		}
	}

	logx.Info().Int("documents", indexed).Msg("Reindexed stored documents")
	return indexed, nil
}

// SourceName is the name reported in answers for a stored document:
// the uploaded filename, falling back to the title.
func SourceName(rec documents.Record) string {
	if name, ok := rec.Metadata["original_filename"].(string); ok && name != "" {
		return name
	}
	return rec.Title
}

func (p *Pipeline) observeSize() {
	if p.metrics != nil {
		p.metrics.IndexedDocuments.Set(float64(p.retriever.Len()))
	}
}

package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/ragqa/server/internal/agent/model"
	"github.com/ragqa/server/internal/metrics"
	logx "github.com/ragqa/server/pkg/logger"
)

// Node names of the query graph.
const (
	NodeRetrieve = "retrieve"
	NodeReason   = "reason"
	NodeFormat   = "format"
)

// stageFunc mutates the state in place.
type stageFunc func(ctx context.Context, state *model.WorkflowState) error

// newStageLambda wraps a stage as a graph node that times it and passes the state on.
func newStageLambda(name string, m *metrics.Metrics, fn stageFunc) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.WorkflowState) (*model.WorkflowState, error) {
		start := time.Now()
		err := fn(ctx, state)
		elapsed := time.Since(start)
		if m != nil {
			m.StageDuration.WithLabelValues(name, metrics.Outcome(err)).Observe(elapsed.Seconds())
		}
		if err != nil {
			logx.Error().Err(err).Str("node", name).Dur("elapsed", elapsed).Msg("Stage failed")
			return nil, err
		}
		logx.Debug().Str("node", name).Dur("elapsed", elapsed).Msg("Stage done")
		return state, nil
	})
}

// NewRetrieveNode creates the retrieve node.
func NewRetrieveNode(r *Retriever, m *metrics.Metrics) *compose.Lambda {
	return newStageLambda(NodeRetrieve, m, r.Retrieve)
}

// NewReasonNode creates the reason node.
func NewReasonNode(r *Reasoner, m *metrics.Metrics) *compose.Lambda {
	return newStageLambda(NodeReason, m, r.Reason)
}

// NewFormatNode creates the format node.
func NewFormatNode(m *metrics.Metrics) *compose.Lambda {
	return newStageLambda(NodeFormat, m, func(_ context.Context, state *model.WorkflowState) error {
		Format(state)
		return nil
	})
}

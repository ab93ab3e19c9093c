package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/ragqa/server/internal/agent/graph/prompts"
	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

// UsageCostKey is the WorkflowState.Metadata key holding *model.UsageCost.
const UsageCostKey = "usage_cost"

// Reasoner asks the chat model to answer the query using the retrieved context.
type Reasoner struct {
	chatModel einomodel.BaseChatModel
	modelName string
}

func NewReasoner(chatModel einomodel.BaseChatModel, modelName string) (*Reasoner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("reasoning chat model is nil")
	}
	return &Reasoner{chatModel: chatModel, modelName: modelName}, nil
}

// Reason sets state.ReasoningOutput from the model response.
func (r *Reasoner) Reason(ctx context.Context, state *model.WorkflowState) error {
	promptCtx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "reasoning_prompt",
		Type:      "ChatTemplate",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := prompts.RenderReasoning(promptCtx, prompts.ReasoningVars{
		Context:   strings.Join(state.RetrievedDocs, "\n"),
		Query:     state.Query,
		User:      state.User,
		Timestamp: state.RequestedAt,
	})
	if err != nil {
		return errx.Internal(err, "render reasoning prompt")
	}

	modelCtx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      r.modelName,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})
	out, err := r.chatModel.Generate(modelCtx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("node", NodeReason).Str("model", r.modelName).Msg("Chat model call failed")
		return errx.Upstream(err, "language model call failed")
	}
	if out == nil {
		return errx.Upstream(fmt.Errorf("nil response"), "language model call failed")
	}

	content := out.Content
	state.ReasoningOutput = &content

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		cost := model.NewUsageCost(r.modelName, out.ResponseMeta.Usage)
		if state.Metadata == nil {
			state.Metadata = map[string]any{}
		}
		state.Metadata[UsageCostKey] = cost
		logx.Debug().
			Str("node", NodeReason).
			Str("model", r.modelName).
			Int("prompt_tokens", cost.PromptTokens).
			Int("completion_tokens", cost.CompletionTokens).
			Int("total_tokens", cost.TotalTokens).
			Float64("total_cost_usd", cost.TotalCost).
			Msg("LLM usage")
	}
	return nil
}

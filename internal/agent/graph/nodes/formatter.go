package nodes

import (
	"github.com/ragqa/server/internal/agent/model"
)

// FallbackResponse is returned when the reason node produced nothing.
const FallbackResponse = "I apologize, but I couldn't process your request."

// Format copies the reasoning output into the response, or the fallback when absent.
func Format(state *model.WorkflowState) {
	resp := FallbackResponse
	if state.ReasoningOutput != nil {
		resp = *state.ReasoningOutput
	}
	state.Response = &resp
}

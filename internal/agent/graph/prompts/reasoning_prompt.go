package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/reasoning_system.txt
var reasoningSystemPrompt string

// TimestampLayout is how the request time is rendered into the prompt.
const TimestampLayout = "2006-01-02 15:04:05"

// ReasoningVars are the values substituted into the reasoning prompt.
type ReasoningVars struct {
	Context   string
	Query     string
	User      string
	Timestamp time.Time
}

var reasoningTemplate = prompt.FromMessages(
	schema.FString,
	schema.SystemMessage(strings.TrimRight(reasoningSystemPrompt, "\n")),
	schema.UserMessage("{query}"),
)

// RenderReasoning renders the system and user messages for the reason node
// via the eino prompt component, so prompt callbacks fire.
func RenderReasoning(ctx context.Context, v ReasoningVars) ([]*schema.Message, error) {
	msgs, err := reasoningTemplate.Format(ctx, map[string]any{
		"context":   v.Context,
		"query":     v.Query,
		"user":      v.User,
		"timestamp": v.Timestamp.UTC().Format(TimestampLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("reasoning prompt render: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}

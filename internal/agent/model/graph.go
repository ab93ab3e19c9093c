package model

import (
	"time"
)

// WorkflowState is the record threaded through retrieve -> reason -> format.
// A fresh value is created for every query and dropped once the answer is
// extracted; it is never shared between requests.
//
// Absent values are nil. Stages only write the fields they own and only read
// fields written by earlier stages.
type WorkflowState struct {
	Query       string    // set at start, never mutated
	User        string    // caller identity rendered into the prompt
	RequestedAt time.Time // request time rendered into the prompt

	RetrievedDocs []string // set by retrieve
	SourceNames   []string // parallel to RetrievedDocs

	ReasoningOutput *string // set by reason
	Response        *string // set by format

	Metadata map[string]any
}

// NewWorkflowState returns a state with only the request fields populated.
func NewWorkflowState(in QueryInput, requestedAt time.Time) *WorkflowState {
	return &WorkflowState{
		Query:       in.Query,
		User:        in.User,
		RequestedAt: requestedAt,
	}
}

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	Query string `json:"query"`
	User  string `json:"user,omitempty"`
}

// Answer is what a pipeline execution returns to callers.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Document is a unit of text handed to the retrieval stage.
type Document struct {
	ID         string
	Content    string
	SourceName string
}

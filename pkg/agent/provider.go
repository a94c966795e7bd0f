// Package agent drives tool-augmented conversation runs: it owns the mapping
// from a user turn to a model run, the polling loop, and the tool-call
// dispatch cycles in between.
package agent

import (
	"context"

	"github.com/abasto-labs/tendero/pkg/catalog"
)

// RunStatus is the provider-side state of one run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run can make no further progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// ToolCallRequest is one function invocation the model asked for mid-run.
// Arguments is the raw JSON string as issued by the model.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string
}

// ToolCallResult pairs a call id with the tool's string output.
type ToolCallResult struct {
	CallID string
	Output string
}

// RunState is a snapshot of one run. ToolCalls is populated only while the
// run requires action.
type RunState struct {
	ID        string
	Status    RunStatus
	ToolCalls []ToolCallRequest
}

// Definition describes the conversational agent advertised to the provider.
type Definition struct {
	Name         string
	Model        string
	Instructions string
	Tools        []catalog.Spec
}

// Provider is the black-box model backend: conversations in, tool requests
// and final answers out. Implementations wrap a concrete LLM API.
type Provider interface {
	CreateAssistant(ctx context.Context, def Definition) (string, error)
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	StartRun(ctx context.Context, threadID, assistantID string) (RunState, error)
	PollRun(ctx context.Context, threadID, runID string) (RunState, error)
	SubmitToolResults(ctx context.Context, threadID, runID string, results []ToolCallResult) error
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

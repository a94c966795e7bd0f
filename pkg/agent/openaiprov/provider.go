// Package openaiprov adapts the OpenAI Assistants API to the agent.Provider
// contract: threads are conversation handles, runs are polled, and function
// tool calls surface as requires_action batches.
package openaiprov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/abasto-labs/tendero/pkg/agent"
	"github.com/abasto-labs/tendero/pkg/catalog"
)

// Provider implements agent.Provider on top of an openai-go client.
type Provider struct {
	client openai.Client
}

var _ agent.Provider = (*Provider)(nil)

func New(client openai.Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) CreateAssistant(ctx context.Context, def agent.Definition) (string, error) {
	tools, err := assistantTools(def.Tools)
	if err != nil {
		return "", err
	}
	asst, err := p.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(def.Model),
		Name:         openai.String(def.Name),
		Instructions: openai.String(def.Instructions),
		Tools:        tools,
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return asst.ID, nil
}

func (p *Provider) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (p *Provider) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := p.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (p *Provider) StartRun(ctx context.Context, threadID, assistantID string) (agent.RunState, error) {
	run, err := p.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return agent.RunState{}, fmt.Errorf("start run: %w", err)
	}
	return fromRun(run), nil
}

func (p *Provider) PollRun(ctx context.Context, threadID, runID string) (agent.RunState, error) {
	run, err := p.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return agent.RunState{}, fmt.Errorf("retrieve run: %w", err)
	}
	return fromRun(run), nil
}

func (p *Provider) SubmitToolResults(ctx context.Context, threadID, runID string, results []agent.ToolCallResult) error {
	outputs := make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, len(results))
	for i, r := range results {
		outputs[i] = openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(r.CallID),
			Output:     openai.String(r.Output),
		}
	}
	_, err := p.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, threadID, runID, openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: outputs,
	})
	if err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}
	return nil
}

func (p *Provider) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	page, err := p.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(page.Data) == 0 {
		return "", errors.New("thread has no messages")
	}
	for _, content := range page.Data[0].Content {
		if content.Text.Value != "" {
			return content.Text.Value, nil
		}
	}
	return "", errors.New("latest message has no text content")
}

func fromRun(run *openai.Run) agent.RunState {
	state := agent.RunState{ID: run.ID, Status: agent.RunStatus(run.Status)}
	if run.Status == openai.RunStatusRequiresAction {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			state.ToolCalls = append(state.ToolCalls, agent.ToolCallRequest{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return state
}

// assistantTools converts catalog specs into the provider's function tool
// shape. The schema goes through JSON so it reaches the model verbatim.
func assistantTools(specs []catalog.Spec) ([]openai.AssistantToolUnionParam, error) {
	out := make([]openai.AssistantToolUnionParam, 0, len(specs))
	for _, s := range specs {
		raw, err := json.Marshal(s.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for tool %s: %w", s.Name, err)
		}
		var params shared.FunctionParameters
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("decode schema for tool %s: %w", s.Name, err)
		}
		out = append(out, openai.AssistantToolUnionParam{
			OfFunction: &openai.FunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        s.Name,
					Description: openai.String(s.Description),
					Parameters:  params,
				},
			},
		})
	}
	return out, nil
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abasto-labs/tendero/pkg/catalog"
)

type memorySessions struct {
	mu            sync.Mutex
	threads       map[string]string
	assistants    map[string]string
	threadCreates int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{threads: map[string]string{}, assistants: map[string]string{}}
}

func (m *memorySessions) GetOrCreateThread(ctx context.Context, userID string, create func(context.Context) (string, error)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.threads[userID]; ok {
		return id, nil
	}
	id, err := create(ctx)
	if err != nil {
		return "", err
	}
	m.threadCreates++
	m.threads[userID] = id
	return id, nil
}

func (m *memorySessions) GetOrCreateAssistant(ctx context.Context, key string, create func(context.Context) (string, error)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.assistants[key]; ok {
		return id, nil
	}
	id, err := create(ctx)
	if err != nil {
		return "", err
	}
	m.assistants[key] = id
	return id, nil
}

// scriptedProvider plays back a fixed sequence of run states and records the
// order of calls it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	script    []RunState
	final     string
	events    []string
	submitted [][]ToolCallResult

	startErr error
	pollErr  error
}

func (p *scriptedProvider) record(ev string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *scriptedProvider) CreateAssistant(context.Context, Definition) (string, error) {
	p.record("create_assistant")
	return "asst_1", nil
}

func (p *scriptedProvider) CreateThread(context.Context) (string, error) {
	p.record("create_thread")
	return "thread_1", nil
}

func (p *scriptedProvider) AddUserMessage(_ context.Context, _, text string) error {
	p.record("message:" + text)
	return nil
}

func (p *scriptedProvider) StartRun(context.Context, string, string) (RunState, error) {
	p.record("start")
	if p.startErr != nil {
		return RunState{}, p.startErr
	}
	return RunState{ID: "run_1", Status: RunQueued}, nil
}

func (p *scriptedProvider) PollRun(context.Context, string, string) (RunState, error) {
	if p.pollErr != nil {
		return RunState{}, p.pollErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.script) == 0 {
		return RunState{ID: "run_1", Status: RunInProgress}, nil
	}
	next := p.script[0]
	p.script = p.script[1:]
	p.events = append(p.events, "poll:"+string(next.Status))
	return next, nil
}

func (p *scriptedProvider) SubmitToolResults(_ context.Context, _, _ string, results []ToolCallResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, results)
	p.events = append(p.events, fmt.Sprintf("submit:%d", len(p.submitted)))
	return nil
}

func (p *scriptedProvider) LatestAssistantMessage(context.Context, string) (string, error) {
	p.record("latest_message")
	return p.final, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.Tool{
			Name:        "lookup_stock",
			Description: "stock lookup",
			Parameters: catalog.ObjectSchema(map[string]catalog.Property{
				"product": {Type: "string"},
			}, "product"),
			Handler: func(_ context.Context, args json.RawMessage) (string, error) {
				var p struct {
					Product string `json:"product"`
				}
				if err := json.Unmarshal(args, &p); err != nil {
					return "", err
				}
				return "stock de " + p.Product + ": 42", nil
			},
		},
		catalog.Tool{
			Name:        "save_note",
			Description: "note",
			Parameters:  catalog.ObjectSchema(nil),
			Handler: func(context.Context, json.RawMessage) (string, error) {
				return "guardado", nil
			},
		},
	)
	require.NoError(t, err)
	return c
}

func newTestRunner(t *testing.T, p *scriptedProvider) *Runner {
	t.Helper()
	r := NewRunner(p, newMemorySessions(), testCatalog(t), DefaultDefinition(testCatalog(t)))
	r.PollInterval = time.Millisecond
	return r
}

func TestRespondTwoToolRounds(t *testing.T) {
	p := &scriptedProvider{
		final: "Tienes 42 en stock y la nota quedó guardada.",
		script: []RunState{
			{ID: "run_1", Status: RunRequiresAction, ToolCalls: []ToolCallRequest{
				{ID: "call_1", Name: "lookup_stock", Arguments: `{"product":"coca"}`},
			}},
			{ID: "run_1", Status: RunRequiresAction, ToolCalls: []ToolCallRequest{
				{ID: "call_2", Name: "save_note", Arguments: `{}`},
			}},
			{ID: "run_1", Status: RunCompleted},
		},
	}
	r := newTestRunner(t, p)

	out := r.Respond(context.Background(), "user-a", "¿cuánto stock tengo?")
	assert.Equal(t, "Tienes 42 en stock y la nota quedó guardada.", out)

	require.Len(t, p.submitted, 2, "both rounds must be answered")
	require.Len(t, p.submitted[0], 1)
	assert.Equal(t, "call_1", p.submitted[0][0].CallID)
	assert.Equal(t, "stock de coca: 42", p.submitted[0][0].Output)
	require.Len(t, p.submitted[1], 1)
	assert.Equal(t, "call_2", p.submitted[1][0].CallID)

	// Ordering: first batch submitted before the second round is even seen,
	// and the final message is only fetched after the run completes.
	assert.Equal(t, []string{
		"create_thread",
		"create_assistant",
		"message:¿cuánto stock tengo?",
		"start",
		"poll:requires_action",
		"submit:1",
		"poll:requires_action",
		"submit:2",
		"poll:completed",
		"latest_message",
	}, p.events)
}

func TestRespondDropsMalformedToolCall(t *testing.T) {
	p := &scriptedProvider{
		final: "listo",
		script: []RunState{
			{ID: "run_1", Status: RunRequiresAction, ToolCalls: []ToolCallRequest{
				{ID: "call_bad", Name: "lookup_stock", Arguments: `{"product":`},
				{ID: "call_ok", Name: "save_note", Arguments: `{}`},
			}},
			{ID: "run_1", Status: RunCompleted},
		},
	}
	r := newTestRunner(t, p)

	out := r.Respond(context.Background(), "user-a", "guarda esto")
	assert.Equal(t, "listo", out)

	require.Len(t, p.submitted, 1)
	require.Len(t, p.submitted[0], 1, "malformed call excluded from the batch")
	assert.Equal(t, "call_ok", p.submitted[0][0].CallID)
}

func TestRespondUnknownToolSkipped(t *testing.T) {
	p := &scriptedProvider{
		final: "ok",
		script: []RunState{
			{ID: "run_1", Status: RunRequiresAction, ToolCalls: []ToolCallRequest{
				{ID: "call_1", Name: "no_such_tool", Arguments: `{}`},
			}},
			{ID: "run_1", Status: RunCompleted},
		},
	}
	r := newTestRunner(t, p)

	out := r.Respond(context.Background(), "user-a", "hola")
	assert.Equal(t, "ok", out)
	require.Len(t, p.submitted, 1)
	assert.Empty(t, p.submitted[0])
}

func TestRespondPollBudgetExhausted(t *testing.T) {
	p := &scriptedProvider{} // never leaves in_progress
	r := newTestRunner(t, p)
	r.MaxPolls = 3

	out := r.Respond(context.Background(), "user-a", "hola")
	assert.Equal(t, Apology, out)
}

func TestRespondProviderFailureApologizes(t *testing.T) {
	p := &scriptedProvider{startErr: errors.New("api unreachable")}
	r := newTestRunner(t, p)

	out := r.Respond(context.Background(), "user-a", "hola")
	assert.Equal(t, Apology, out)
}

func TestRespondRunFailedStatusApologizes(t *testing.T) {
	p := &scriptedProvider{
		script: []RunState{{ID: "run_1", Status: RunFailed}},
	}
	r := newTestRunner(t, p)

	out := r.Respond(context.Background(), "user-a", "hola")
	assert.Equal(t, Apology, out)
}

func TestRespondReusesThreadAndDailyAssistant(t *testing.T) {
	p := &scriptedProvider{
		final:  "hola",
		script: []RunState{{Status: RunCompleted}, {Status: RunCompleted}},
	}
	sessions := newMemorySessions()
	r := NewRunner(p, sessions, testCatalog(t), DefaultDefinition(testCatalog(t)))
	r.PollInterval = time.Millisecond

	r.Respond(context.Background(), "user-a", "uno")
	r.Respond(context.Background(), "user-a", "dos")

	assert.Equal(t, 1, sessions.threadCreates, "one thread per user id")
	assert.Len(t, sessions.assistants, 1, "one assistant per date key")
}

func TestRespondContextCancelled(t *testing.T) {
	p := &scriptedProvider{}
	r := newTestRunner(t, p)
	r.PollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.Respond(ctx, "user-a", "hola")
	assert.Equal(t, Apology, out)
}

package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abasto-labs/tendero/pkg/catalog"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxPolls     = 120

	// Apology is what the user sees when a run cannot be completed.
	Apology = "Lo siento, ocurrió un problema al procesar tu mensaje. Por favor intenta de nuevo en un momento."
)

// Sessions is the durable session mapping the runner resolves against.
type Sessions interface {
	GetOrCreateThread(ctx context.Context, userID string, create func(context.Context) (string, error)) (string, error)
	GetOrCreateAssistant(ctx context.Context, cacheKey string, create func(context.Context) (string, error)) (string, error)
}

// Runner is the orchestration state machine for one user turn:
// Created → Submitted → Polling → (RequiresAction → ToolDispatch → Polling)* →
// Completed, with Failed absorbing any unrecoverable error into an apology.
type Runner struct {
	provider Provider
	sessions Sessions
	tools    *catalog.Catalog
	def      Definition

	// PollInterval is the wait between run status checks.
	PollInterval time.Duration
	// MaxPolls bounds the total status checks per turn; beyond it the turn
	// fails instead of hanging on a backend that never terminates.
	MaxPolls int

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRunner(provider Provider, sessions Sessions, tools *catalog.Catalog, def Definition) *Runner {
	return &Runner{
		provider:     provider,
		sessions:     sessions,
		tools:        tools,
		def:          def,
		PollInterval: defaultPollInterval,
		MaxPolls:     defaultMaxPolls,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Respond handles one user turn and always returns something sendable: the
// model's final answer, a timeout apology, or the generic apology on provider
// failure. Turns for the same user id are serialized.
func (r *Runner) Respond(ctx context.Context, userID, text string) string {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx = WithUserID(ctx, userID)

	threadID, err := r.sessions.GetOrCreateThread(ctx, userID, r.provider.CreateThread)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("resolve conversation failed")
		return Apology
	}

	assistantID, err := r.assistantForToday(ctx)
	if err != nil {
		log.Error().Err(err).Msg("resolve assistant failed")
		return Apology
	}

	if err := r.provider.AddUserMessage(ctx, threadID, text); err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("append message failed")
		return Apology
	}

	run, err := r.provider.StartRun(ctx, threadID, assistantID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("start run failed")
		return Apology
	}

	answer, err := r.drive(ctx, threadID, run)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Str("run_id", run.ID).
			Msg("run did not complete")
		return Apology
	}
	return answer
}

// assistantForToday resolves the daily-rotating agent definition: one
// assistant per date key, created lazily.
func (r *Runner) assistantForToday(ctx context.Context) (string, error) {
	key := r.now().Format("2006-01-02")
	return r.sessions.GetOrCreateAssistant(ctx, key, func(ctx context.Context) (string, error) {
		return r.provider.CreateAssistant(ctx, r.def)
	})
}

// drive advances the run until it completes, fails, or exhausts the poll
// budget. requires_action cycles dispatch the whole batch and resume polling.
func (r *Runner) drive(ctx context.Context, threadID string, run RunState) (string, error) {
	for polls := 0; polls < r.MaxPolls; polls++ {
		switch run.Status {
		case RunCompleted:
			return r.provider.LatestAssistantMessage(ctx, threadID)

		case RunRequiresAction:
			results := r.dispatchBatch(ctx, run.ToolCalls)
			if err := r.provider.SubmitToolResults(ctx, threadID, run.ID, results); err != nil {
				return "", err
			}

		case RunFailed, RunCancelled, RunExpired:
			return "", &runTerminalError{status: run.Status}

		default:
			if err := sleepCtx(ctx, r.PollInterval); err != nil {
				return "", err
			}
		}

		next, err := r.provider.PollRun(ctx, threadID, run.ID)
		if err != nil {
			return "", err
		}
		run = next
	}
	return "", &runTimeoutError{polls: r.MaxPolls}
}

// dispatchBatch runs every requested call through the catalog concurrently
// and joins before returning. Skipped calls (unknown tool, malformed args)
// are excluded from the batch.
func (r *Runner) dispatchBatch(ctx context.Context, calls []ToolCallRequest) []ToolCallResult {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []ToolCallResult
	)
	for _, call := range calls {
		wg.Add(1)
		go func(call ToolCallRequest) {
			defer wg.Done()
			out, ok := r.tools.Dispatch(ctx, call.Name, call.Arguments)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, ToolCallResult{CallID: call.ID, Output: out})
			mu.Unlock()
		}(call)
	}
	wg.Wait()
	return results
}

func (r *Runner) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type runTerminalError struct {
	status RunStatus
}

func (e *runTerminalError) Error() string {
	return "run ended with status " + string(e.status)
}

type runTimeoutError struct {
	polls int
}

func (e *runTimeoutError) Error() string {
	return fmt.Sprintf("run did not reach a terminal status within %d polls", e.polls)
}

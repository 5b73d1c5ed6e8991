package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fahadazizz/knowledg-rag/log"
	"github.com/fahadazizz/knowledg-rag/rag"
)

// Engine answers queries within threads. A turn commits to the session
// store only after synthesis succeeds; a failed or cancelled turn
// leaves the thread history untouched.
type Engine struct {
	planner  *Planner
	sessions rag.SessionStore
	logger   log.Logger
}

// EngineOption configures the Engine
type EngineOption func(*Engine)

// WithEngineLogger sets the logger
func WithEngineLogger(logger log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a new turn engine
func NewEngine(planner *Planner, sessions rag.SessionStore, opts ...EngineOption) *Engine {
	e := &Engine{
		planner:  planner,
		sessions: sessions,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer runs one full turn: load history, plan and retrieve, then
// synthesize and append the completed turn to the thread.
func (e *Engine) Answer(ctx context.Context, threadID, query string) (*rag.Turn, error) {
	start := time.Now()

	history, err := e.sessions.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	state, err := e.planner.Run(ctx, query, history)
	if err != nil {
		e.logger.Error("thread %s: answer loop failed: %v", threadID, err)
		return nil, err
	}
	answer := state.Answer
	if answer == nil {
		return nil, fmt.Errorf("%w: planner finished without an answer", rag.ErrSynthesis)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	turn := rag.Turn{
		ThreadID:    threadID,
		Index:       nextIndex(history),
		Query:       query,
		Answer:      answer.Text,
		Citations:   answer.Citations,
		EvidenceIDs: answer.EvidenceIDs,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.sessions.Append(ctx, threadID, turn); err != nil {
		return nil, fmt.Errorf("appending turn to thread %s: %w", threadID, err)
	}

	e.logger.Info("thread %s turn %d answered in %v (%d iterations, %s)",
		threadID, turn.Index, time.Since(start).Round(time.Millisecond),
		state.Iteration, state.StopReason)
	return &turn, nil
}

// nextIndex continues the thread's turn numbering. Loaded history may
// be a trimmed window, so its length repeats once old turns are
// evicted; the last turn's index does not.
func nextIndex(history []rag.Turn) int {
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Index + 1
}

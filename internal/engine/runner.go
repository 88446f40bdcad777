package engine

import (
	"context"
	"fmt"
	"sync"

	"stratlab/types"

	"github.com/google/uuid"
)

// Runner executes backtests in the background. Cancel is cooperative: a run
// notices it before its next stage starts.
type Runner struct {
	engine *Engine

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
	result *types.BacktestResult
	err    error
}

func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine: engine,
		jobs:   make(map[string]*job),
	}
}

// Submit records the backtest as pending and starts it. An empty request ID
// gets a fresh UUID. The run outlives ctx's cancellation; use Cancel.
func (r *Runner) Submit(ctx context.Context, req BacktestRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	r.mu.Lock()
	if _, ok := r.jobs[req.ID]; ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: backtest %s already submitted", ErrInvalidRequest, req.ID)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{cancel: cancel, done: make(chan struct{})}
	r.jobs[req.ID] = j
	r.mu.Unlock()

	if err := r.engine.create(ctx, req); err != nil {
		cancel()
		r.mu.Lock()
		delete(r.jobs, req.ID)
		r.mu.Unlock()
		return "", err
	}

	go func() {
		defer close(j.done)
		defer cancel()
		j.result, j.err = r.engine.execute(runCtx, req)
	}()
	return req.ID, nil
}

// Cancel requests cancellation and reports whether the id is known.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// Wait blocks until the run finishes or ctx is done. Once it has handed out
// a finished run's result the runner forgets that id.
func (r *Runner) Wait(ctx context.Context, id string) (*types.BacktestResult, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown backtest %s", ErrInvalidRequest, id)
	}
	select {
	case <-j.done:
		r.mu.Lock()
		if r.jobs[id] == j {
			delete(r.jobs, id)
		}
		r.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

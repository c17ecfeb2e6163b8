package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/factfin-ai/factfin/internal/domain"
)

// DefaultPoolWorkers is the number of concurrent verification runs.
const DefaultPoolWorkers = 4

type task struct {
	ctx  context.Context
	in   RunInput
	done chan taskResult
}

type taskResult struct {
	verdict *domain.Verdict
	err     error
}

// Pool runs pipeline executions on a fixed set of workers so that a burst of
// requests cannot fan out into unbounded provider and LLM calls.
type Pool struct {
	pipeline *Pipeline
	tasks    chan *task
	workers  int
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPool creates a run pool. workers <= 0 selects the default. The queue
// holds at most one pending run per worker; beyond that Submit reports
// saturation instead of blocking.
func NewPool(p *Pipeline, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultPoolWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		pipeline: p,
		tasks:    make(chan *task, workers),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the pool workers.
func (p *Pool) Start() {
	log.Printf("pipeline: starting run pool (workers: %d)", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a run and waits for its result. The caller's context governs
// the run: if the caller departs, the in-flight run is cancelled with it.
// A full queue returns ErrPipelineSaturated immediately.
func (p *Pool) Submit(ctx context.Context, in RunInput) (*domain.Verdict, error) {
	t := &task{
		ctx:  ctx,
		in:   in,
		done: make(chan taskResult, 1),
	}

	select {
	case p.tasks <- t:
	default:
		return nil, domain.ErrPipelineSaturated
	}

	select {
	case res := <-t.done:
		return res.verdict, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, domain.ErrPipelineSaturated
	}
}

// Shutdown stops the workers after the current runs finish.
func (p *Pool) Shutdown() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
	log.Printf("pipeline: run pool shutdown complete")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case t, ok := <-p.tasks:
			if !ok {
				return
			}

			verdict, err := p.pipeline.Run(t.ctx, t.in)
			if err != nil {
				log.Printf("pipeline: run failed (worker: %d): %v", id, err)
			}
			t.done <- taskResult{verdict: verdict, err: err}

		case <-p.ctx.Done():
			return
		}
	}
}

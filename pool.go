package poolio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shtsoft/poolio/metrics"
)

// Job is a single unit of work submitted to the pool. It takes no arguments
// and returns nothing; everything it needs has to be captured by the closure.
// Ownership of the captured state moves to the pool on Submit, the caller
// must not touch it concurrently afterwards.
type Job func()

// PanicHandler is called when a job panics inside a worker. It receives the
// id of the worker that ran the job, the recovered value and the stack trace
// captured at the point of recovery.
type PanicHandler func(workerID int, cause any, stack []byte)

var (
	// ErrInvalidSize is returned by New for a worker count below one.
	ErrInvalidSize = errors.New("pool size must be at least 1")
	// ErrClosed is returned by Submit once shutdown has been initiated.
	ErrClosed = errors.New("pool is closed")
)

// Pool is a fixed-size worker pool fed by a single shared FIFO queue.
// All coordination is done with channels; the only lock guards the
// closed flag checked on Submit.
type Pool struct {
	poolSize int          // number of workers (goroutines)
	queueCap int          // max queued jobs, 0 means unbounded
	onPanic  PanicHandler // optional hook for contained job panics
	mws      []Middleware // job wrappers applied on Submit

	submitCh   chan Job // producers side, closed by Close
	dispatchCh chan Job // workers side, closed by the dispatcher after drain

	metrics *metrics.Value // shared metrics

	eg        *errgroup.Group
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Middleware wraps a job and adds functionality around its execution.
type Middleware func(Job) Job

// New creates a pool with the given number of workers and starts them right
// away. Workers are spawned eagerly, not on first job, so a returned pool is
// immediately ready to execute. Returns ErrInvalidSize for size < 1 before
// any goroutine is started.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("can't create pool with %d workers: %w", size, ErrInvalidSize)
	}

	p := &Pool{
		poolSize:   size,
		submitCh:   make(chan Job),
		dispatchCh: make(chan Job),
		metrics:    metrics.New(size),
		eg:         &errgroup.Group{},
	}

	for _, opt := range opts {
		opt(p)
	}

	// the dispatcher decouples producers from workers; it and all workers
	// are joined by the same errgroup on Close
	p.eg.Go(p.dispatchProc)
	for id := range size {
		p.eg.Go(p.workerProc(id))
	}

	return p, nil
}

// Use appends job middlewares, applied to every job on Submit. Middlewares
// are applied in the order provided, the first one is the outermost wrapper,
// matching the HTTP middleware pattern in Go. Has to be called before the
// first Submit; Use is not safe for concurrent use with Submit.
func (p *Pool) Use(middlewares ...Middleware) *Pool {
	p.mws = append(p.mws, middlewares...)
	return p
}

// Submit enqueues a job for execution by exactly one worker. It never waits
// for a worker to become free: the dispatcher buffers whatever the workers
// can't take immediately, so a running job may safely submit more jobs to
// the same pool. With WithQueueCap set, Submit blocks once the backlog is
// full. Returns ErrClosed after shutdown has been initiated; the job is not
// queued in that case.
func (p *Pool) Submit(job Job) error {
	for i := len(p.mws) - 1; i >= 0; i-- {
		job = p.mws[i](job)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.submitCh <- job
	return nil
}

// dispatchProc shuttles jobs from the submit side to the workers, keeping a
// FIFO backlog of everything the workers haven't claimed yet. Once the
// submit channel is closed it hands the remaining backlog to the workers and
// then closes the dispatch channel, which is what terminates the worker loops.
func (p *Pool) dispatchProc() error {
	var backlog []Job

	in := p.submitCh
	for in != nil || len(backlog) > 0 {
		var out chan<- Job
		var next Job
		if len(backlog) > 0 {
			out = p.dispatchCh
			next = backlog[0]
		}

		recv := in
		if p.queueCap > 0 && len(backlog) >= p.queueCap {
			recv = nil // backlog full, stop intake until workers catch up
		}

		select {
		case job, ok := <-recv:
			if !ok {
				in = nil // shutdown initiated, finish the backlog
				continue
			}
			backlog = append(backlog, job)
		case out <- next:
			backlog[0] = nil // release the claimed job for gc
			backlog = backlog[1:]
			if len(backlog) == 0 {
				backlog = nil // reset instead of holding the grown slice
			}
		}
	}

	close(p.dispatchCh)
	return nil
}

// workerProc is a worker goroutine function, it claims jobs from the
// dispatch channel and runs them until the channel is closed and drained.
func (p *Pool) workerProc(id int) func() error {
	return func() error {
		lastActivity := time.Now()
		for job := range p.dispatchCh {
			p.metrics.AddWaitTime(id, time.Since(lastActivity))
			p.runJob(id, job)
			lastActivity = time.Now()
		}
		return nil
	}
}

// runJob executes a single job with panic containment. A panicking job is
// counted and optionally reported through the OnPanic hook; the worker
// itself keeps serving subsequent jobs.
func (p *Pool) runJob(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.IncPanicked(id)
			if p.onPanic != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				p.onPanic(id, r, buf[:n])
			}
		}
	}()

	st := time.Now()
	job()
	p.metrics.AddProcTime(id, time.Since(st))
	p.metrics.IncProcessed(id)
}

// Close initiates shutdown and blocks until every job accepted so far has
// been executed and all workers have terminated. Submissions racing with
// Close either get queued and run or fail with ErrClosed, never silently
// dropped. Safe to call multiple times; subsequent calls just wait.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.submitCh)
	})
	return p.eg.Wait()
}

// Wait blocks until all workers terminated. It does not initiate shutdown,
// some other goroutine has to call Close for Wait to ever return.
func (p *Pool) Wait() error {
	return p.eg.Wait()
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.poolSize
}

// Metrics returns combined metrics from all workers.
func (p *Pool) Metrics() *metrics.Value {
	return p.metrics
}

// Package poolio provides a fixed-size worker pool built on message passing.
// Jobs are plain closures submitted to a shared FIFO queue and executed by a
// bounded set of workers; the only synchronization is the queue itself.
//
// # Basic Usage
//
//	p, err := poolio.New(4)
//	if err != nil {
//	    return err
//	}
//
//	// submit work
//	p.Submit(func() { handle("task1") })
//	p.Submit(func() { handle("task2") })
//
//	// drain and stop all workers
//	if err := p.Close(); err != nil {
//	    return err
//	}
//
// Workers are spawned eagerly by New. Submit hands the job to exactly one
// worker and never waits for a free worker, so jobs may submit further jobs
// to the same pool without risking deadlock. Close stops intake, waits until
// every accepted job has run and joins all workers; after Close returns no
// pool goroutine is left and Submit fails with ErrClosed.
//
// # Panic containment
//
// A panicking job never takes down its worker, the pool or the process. The
// panic is recovered at the worker boundary, counted in metrics and, if
// configured, reported through a hook:
//
//	p, _ := poolio.New(4, poolio.WithOnPanic(func(id int, cause any, stack []byte) {
//	    log.Printf("worker %d: job panicked: %v\n%s", id, cause, stack)
//	}))
//
// # Queue capacity
//
// By default the queue is unbounded and Submit returns immediately. Sustained
// overload then grows memory without limit; use WithQueueCap to bound the
// backlog and make Submit block instead:
//
//	p, _ := poolio.New(4, poolio.WithQueueCap(1000))
//
// # Ordering
//
// Jobs enter the queue in submission order, but any idle worker may claim
// the next job, so completion order across workers is unspecified. A pool of
// size 1 executes jobs strictly in submission order.
//
// # Middleware
//
// Cross-cutting behavior can be attached to every job with middlewares,
// applied on Submit in the order given:
//
//	p.Use(middleware.Timed(func(d time.Duration) { observe(d) }))
//
// # Metrics
//
// The pool collects per-worker counts of processed and panicked jobs along
// with wait and processing times:
//
//	stats := p.Metrics().Stats()
//	fmt.Printf("processed: %d, panicked: %d", stats.Processed, stats.Panicked)
package poolio

package poolio

// Option represents a configuration option for Pool.
type Option func(*Pool)

// WithQueueCap bounds the dispatcher's backlog to n jobs. Once the backlog
// is full, Submit blocks until workers catch up, applying backpressure to
// producers. Default is an unbounded backlog and a never-blocking Submit,
// trading memory growth under sustained overload for submitter latency.
func WithQueueCap(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueCap = n
		}
	}
}

// WithOnPanic sets the handler called when a job panics inside a worker.
// The panic is contained either way; the handler only adds reporting.
// The handler runs on the worker goroutine, so it should be quick.
// Default: panics are counted in metrics and otherwise absorbed.
func WithOnPanic(fn PanicHandler) Option {
	return func(p *Pool) {
		p.onPanic = fn
	}
}

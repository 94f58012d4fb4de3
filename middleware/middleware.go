// Package middleware provides common job middleware implementations for the
// poolio package.
package middleware

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/shtsoft/poolio"
)

// Throttle returns a middleware that limits how often jobs start executing
// across all workers, using a shared token bucket. limit is the sustained
// rate in jobs per second, burst is the number of jobs allowed to start
// without waiting.
func Throttle(limit rate.Limit, burst int) poolio.Middleware {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(next poolio.Job) poolio.Job {
		return func() {
			// the only failure mode of Wait is a cancelled or expired
			// context, background can do neither
			_ = limiter.Wait(context.Background())
			next()
		}
	}
}

// Timed returns a middleware that reports each job's execution time to the
// observe callback. The callback is invoked from worker goroutines and has
// to be safe for concurrent use.
func Timed(observe func(time.Duration)) poolio.Middleware {
	return func(next poolio.Job) poolio.Job {
		return func() {
			st := time.Now()
			defer func() { observe(time.Since(st)) }()
			next()
		}
	}
}

// Recovery returns a middleware that recovers a panicking job before the
// pool's own containment sees it and passes the panic value to handler.
// Useful to attach job-specific context to the report, unlike the pool-wide
// OnPanic hook. With a nil handler the panic is absorbed silently.
func Recovery(handler func(cause any)) poolio.Middleware {
	return func(next poolio.Job) poolio.Job {
		return func() {
			defer func() {
				if r := recover(); r != nil && handler != nil {
					handler(r)
				}
			}()
			next()
		}
	}
}

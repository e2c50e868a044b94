// Package batch runs independent jobs with a concurrency cap and per-item
// failure isolation.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	NothingToDo        = "No pending videos to process"
)

// Result aggregates per-item outcomes of one Process call.
type Result struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message,omitempty"`
}

func (r Result) Total() int { return r.Processed + r.Failed + r.Skipped }

// Handler does the work for a single item. A returned error (or a panic)
// counts the item as failed.
type Handler[T any] func(ctx context.Context, item T) error

// Processor fans items out to Handler, never running more than Limit at once.
type Processor[T any] struct {
	limit  int
	handle Handler[T]
	skip   func(T) bool
	onErr  func(item T, err error)
}

type Option[T any] func(*Processor[T])

// WithSkip marks items that are already done; they are counted but not handled.
func WithSkip[T any](skip func(T) bool) Option[T] {
	return func(p *Processor[T]) { p.skip = skip }
}

// WithErrorHook is called once per failed item, from the worker goroutine.
func WithErrorHook[T any](fn func(item T, err error)) Option[T] {
	return func(p *Processor[T]) { p.onErr = fn }
}

func New[T any](limit int, handle Handler[T], opts ...Option[T]) *Processor[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	p := &Processor[T]{limit: limit, handle: handle}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor[T]) Limit() int { return p.limit }

// Process handles every item and returns the aggregate counts. Item errors are
// never returned; the only error is ctx's if it was cancelled before all
// items were dispatched, in which case undispatched items count as failed.
func (p *Processor[T]) Process(ctx context.Context, items []T) (Result, error) {
	if len(items) == 0 {
		return Result{Message: NothingToDo}, nil
	}

	var processed, failed, skipped atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(p.limit)

	// Skips are still counted after cancellation; only dispatch stops.
	dispatched := 0
	for _, item := range items {
		if p.skip != nil && p.skip(item) {
			skipped.Add(1)
			dispatched++
			continue
		}
		if ctx.Err() != nil {
			continue
		}
		dispatched++
		item := item
		g.Go(func() error {
			if err := p.run(ctx, item); err != nil {
				failed.Add(1)
				if p.onErr != nil {
					p.onErr(item, err)
				}
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()) + len(items) - dispatched,
		Skipped:   int(skipped.Load()),
	}
	res.Message = fmt.Sprintf("Processed %d, failed %d, skipped %d", res.Processed, res.Failed, res.Skipped)

	if dispatched < len(items) {
		return res, ctx.Err()
	}
	return res, nil
}

func (p *Processor[T]) run(ctx context.Context, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch item panicked: %v", r)
		}
	}()
	return p.handle(ctx, item)
}

package convert

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// stage describes one ordered fan-out/fan-in run.
//
// next produces items with contiguous ordinals starting at zero and returns
// io.EOF when exhausted. work runs on the worker pool. emit runs on a single
// goroutine and sees results in ordinal order. release, if set, is called for
// every item a worker has finished with, including discarded ones.
type stage[T any, R any] struct {
	workers int
	next    func() (int, T, error)
	work    func(T) (R, error)
	emit    func(R) error
	release func(T)
}

type result[R any] struct {
	ordinal int
	value   R
}

// run executes the stage. The first error stops dispatch; work already handed
// to workers is allowed to finish and its output is dropped.
func (s stage[T, R]) run(ctx context.Context) error {
	workers := max(s.workers, 1)
	jobs := make(chan result[T], workers*2)
	results := make(chan result[R], workers*2)
	// bounds dispatched-but-unwritten items, which caps the reorder buffer
	inflight := make(chan struct{}, workers*4)

	var abort atomic.Bool
	g, ctx := errgroup.WithContext(ctx)

	// producer
	g.Go(func() error {
		defer close(jobs)

		for !abort.Load() {
			if err := ctx.Err(); err != nil {
				return err
			}

			select {
			case inflight <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

			ordinal, item, err := s.next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				abort.Store(true)
				return err
			}

			select {
			case jobs <- result[T]{ordinal: ordinal, value: item}:
			case <-ctx.Done():
				s.done(item)
				return ctx.Err()
			}
		}

		return nil
	})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()

			for job := range jobs {
				if abort.Load() {
					s.done(job.value)
					continue
				}

				out, err := s.work(job.value)
				s.done(job.value)
				if err != nil {
					abort.Store(true)
					return err
				}

				select {
				case results <- result[R]{ordinal: job.ordinal, value: out}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(results)

		return nil
	})

	// collector
	g.Go(func() error {
		pending := make(map[int]R)
		next := 0
		for res := range results {
			if abort.Load() {
				continue
			}
			pending[res.ordinal] = res.value

			for {
				out, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := s.emit(out); err != nil {
					abort.Store(true)
					return err
				}
				next++
				<-inflight
			}
		}

		return nil
	})

	return g.Wait()
}

func (s stage[T, R]) done(item T) {
	if s.release != nil {
		s.release(item)
	}
}

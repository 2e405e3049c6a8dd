package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of processing one page: either the encoded page
// payload or the failure that prevented it. Every admitted page index
// produces exactly one Result.
type Result struct {
	Page    int
	Payload []byte
	Err     error
}

// WorkFunc processes a single page. It must return failures inside the
// Result rather than panicking; the pool treats a non-nil Result.Err as
// the page's terminal outcome.
type WorkFunc func(ctx context.Context, page int) Result

// Pool runs page jobs across a bounded set of workers and re-emits the
// results in ascending page order, whatever order they complete in.
type Pool struct {
	workers    int
	onPageDone func(completed int)
}

// Config controls pool construction.
type Config struct {
	// Workers is the concurrency limit. Zero or negative means all
	// logical CPUs. Resolved once here, never re-read mid-run.
	Workers int

	// OnPageDone, if set, is invoked after each page job finishes
	// (successfully or not) with the running completion count. It is
	// called from the pool's collector goroutine only, so it needs no
	// synchronization of its own.
	OnPageDone func(completed int)
}

func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers, onPageDone: cfg.OnPageDone}
}

// Workers reports the resolved concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// Run dispatches pages [0,total) to work with at most p.workers in
// flight, and calls emit with each Result in strictly ascending page
// order. Completed-but-not-yet-emittable results are buffered so a slow
// early page never blocks later admissions.
//
// On the first failed page, an emit error, or context cancellation the
// pool stops admitting new jobs, lets in-flight jobs finish, drains and
// discards their results, and returns an error. Nothing is emitted past
// the abort point.
func (p *Pool) Run(ctx context.Context, total int, work WorkFunc, emit func(Result) error) error {
	if total <= 0 {
		return errors.New("no pages to dispatch")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result)

	var g errgroup.Group
	g.SetLimit(p.workers)

	admitted := make(chan struct{})
	go func() {
		defer close(admitted)
		for page := 0; page < total; page++ {
			if runCtx.Err() != nil {
				return
			}
			g.Go(func() error {
				if err := runCtx.Err(); err != nil {
					// Abort decided while waiting for a slot: the page
					// was admitted but must not start real work.
					results <- Result{Page: page, Err: err}
					return nil
				}
				results <- work(runCtx, page)
				return nil
			})
		}
	}()

	go func() {
		<-admitted
		_ = g.Wait()
		close(results)
	}()

	pending := make(map[int]Result, p.workers)
	next := 0
	completed := 0
	var failures []PageFailure
	var emitErr error
	aborted := false

	abort := func() {
		if !aborted {
			aborted = true
			cancel()
		}
	}

	for res := range results {
		if res.Err != nil && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
			// The abort (or deadline) overtook this page; not a
			// completion and not a reportable failure of its own.
			continue
		}

		completed++
		if p.onPageDone != nil {
			p.onPageDone(completed)
		}

		if res.Err != nil {
			log.Error().Err(res.Err).Int("page", res.Page).Msg("page job failed")
			failures = append(failures, PageFailure{Page: res.Page, Err: res.Err})
			abort()
			continue
		}
		if aborted {
			// Drained in-flight success after the abort decision.
			continue
		}

		pending[res.Page] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := emit(r); err != nil {
				emitErr = err
				abort()
				break
			}
			next++
		}
	}

	switch {
	case emitErr != nil:
		return emitErr
	case len(failures) > 0:
		return &RunError{Failures: failures}
	case ctx.Err() != nil:
		return fmt.Errorf("dispatch aborted: %w", ctx.Err())
	case next != total:
		// Exactly-once bookkeeping went wrong; surface it loudly
		// rather than writing a short document.
		return fmt.Errorf("emitted %d of %d pages", next, total)
	default:
		return nil
	}
}

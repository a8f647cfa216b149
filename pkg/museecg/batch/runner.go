package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Exit codes of a finished run.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitPartial = 2
)

// Failure records one document that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Summary counts the outcome of a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// ExitCode is 0 when nothing failed, 1 when every document failed and 2
// when some succeeded and some failed.
func (s *Summary) ExitCode() int {
	switch {
	case s.Failed == 0:
		return ExitOK
	case s.Succeeded == 0:
		return ExitFailed
	default:
		return ExitPartial
	}
}

// Runner holds the run settings.
type Runner struct {
	Workers       int // documents processed concurrently; <= 1 is sequential
	ProgressEvery int // log progress every N successes; 0 disables
	Log           Logger
}

type result[T any] struct {
	value T
	err   error
	done  bool
}

// Run calls process for every path and hands each successful result to
// sink in input order from the calling goroutine. A process error is
// logged and counted; a sink error stops the run and is returned together
// with the summary so far. Cancellation is checked between documents.
func Run[T any](
	ctx context.Context,
	r *Runner,
	paths []string,
	process func(ctx context.Context, path string) (T, error),
	sink func(path string, value T) error,
) (*Summary, error) {
	workers := max(r.Workers, 1)
	chunk := workers * 4

	sum := &Summary{}
	for start := 0; start < len(paths); start += chunk {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		batch := paths[start:min(start+chunk, len(paths))]
		results := make([]result[T], len(batch))

		var g errgroup.Group
		g.SetLimit(workers)
		for i, path := range batch {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				v, err := process(ctx, path)
				results[i] = result[T]{value: v, err: err, done: true}
				return nil
			})
		}
		_ = g.Wait()

		for i, res := range results {
			path := batch[i]
			if !res.done {
				return sum, ctx.Err()
			}
			sum.Total++

			if res.err != nil {
				r.Log.Warnf("Failed on %s: %v", path, res.err)
				sum.Failed++
				sum.Failures = append(sum.Failures, Failure{Path: path, Err: res.err})
				continue
			}

			if err := sink(path, res.value); err != nil {
				return sum, fmt.Errorf("writing result for %s: %w", path, err)
			}
			sum.Succeeded++

			if r.ProgressEvery > 0 && sum.Succeeded%r.ProgressEvery == 0 {
				r.Log.Infof("Processed %d files...", sum.Succeeded)
			}
		}
	}
	return sum, nil
}

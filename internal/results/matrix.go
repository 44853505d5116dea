package results

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/encoder"
	"github.com/smazurov/enctests/internal/events"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/otio"
)

// Runner runs a single encode test. *encoder.Executor implements it.
type Runner interface {
	RunOne(ctx context.Context, clip *otio.Clip, test descriptor.EncodeTestDescriptor) (otio.MediaReference, error)
	IsCurrent(clip *otio.Clip, test descriptor.EncodeTestDescriptor) bool
	Skip(clip *otio.Clip, test descriptor.EncodeTestDescriptor, reason string)
}

// Options controls a matrix run.
type Options struct {
	// EncodeAll runs every pair, even those with a current result.
	EncodeAll bool

	// Jobs is the number of encodes run at once. Values below 2 run the
	// matrix sequentially.
	Jobs int

	// Clips limits the run to the named clips. Others keep their prior
	// results untouched. Empty runs every clip.
	Clips []string

	// RunID identifies the run in events. A new one is generated when empty.
	RunID string

	// EventBus receives the RunCompletedEvent (optional).
	EventBus *events.Bus
}

// MatrixSummary describes the outcome of a matrix run.
type MatrixSummary struct {
	RunID    string
	Encoded  int
	Skipped  int
	Failures []*encoder.EncodeFailure
	Duration time.Duration
}

// Failed reports whether any pair failed.
func (s *MatrixSummary) Failed() bool {
	return len(s.Failures) > 0
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

type pair struct {
	clipIdx, testIdx int
	clip             *otio.Clip
	test             descriptor.EncodeTestDescriptor
}

type outcome struct {
	pair
	ref     otio.MediaReference
	skipped bool
	err     error
}

// RunMatrix runs every test against every clip of coll, in clip order then
// test order, storing each output on its clip under the test name. Pairs that
// fail are recorded in the summary and the run continues. The returned error
// is non-nil only when ctx ended before the matrix finished.
func RunMatrix(ctx context.Context, coll *otio.Collection, tests []descriptor.EncodeTestDescriptor, runner Runner, opts Options) (*MatrixSummary, error) {
	logger := logging.GetLogger("results")
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	started := time.Now()

	var pairs []pair
	for ci, clip := range coll.Clips {
		if clip.MediaReference() == nil {
			logger.Warn("Clip has no source media, skipping", "clip", clip.Name)
			continue
		}
		if len(opts.Clips) > 0 && !slices.Contains(opts.Clips, clip.Name) {
			logger.Info("Clip is no longer described, keeping prior results", "clip", clip.Name)
			continue
		}
		for ti, test := range tests {
			if test.Kind != descriptor.KindTest {
				continue
			}
			pairs = append(pairs, pair{clipIdx: ci, testIdx: ti, clip: clip, test: test})
		}
	}

	logger.Info("Running test matrix", "run_id", opts.RunID, "clips", len(coll.Clips),
		"tests", len(tests), "pairs", len(pairs), "jobs", max(opts.Jobs, 1))

	var (
		outcomes []outcome
		err      error
	)
	if opts.Jobs < 2 {
		outcomes, err = runSequential(ctx, pairs, runner, opts)
	} else {
		outcomes, err = runParallel(ctx, pairs, runner, opts)
	}

	summary := &MatrixSummary{RunID: opts.RunID}
	for _, o := range outcomes {
		var failure *encoder.EncodeFailure
		switch {
		case o.skipped:
			summary.Skipped++
		case errors.As(o.err, &failure):
			summary.Failures = append(summary.Failures, failure)
		case o.err != nil:
			summary.Failures = append(summary.Failures, &encoder.EncodeFailure{
				TestName: o.test.Name, ClipName: o.clip.Name, ExitCode: -1, Err: o.err,
			})
		default:
			summary.Encoded++
		}
	}
	summary.Duration = time.Since(started)

	logger.Info("Test matrix finished", "run_id", opts.RunID, "encoded", summary.Encoded,
		"skipped", summary.Skipped, "failed", len(summary.Failures), "duration", summary.Duration)
	opts.EventBus.Publish(events.RunCompletedEvent{
		RunID:    opts.RunID,
		Encoded:  summary.Encoded,
		Skipped:  summary.Skipped,
		Failed:   len(summary.Failures),
		Duration: summary.Duration.Seconds(),
	})
	return summary, err
}

func runSequential(ctx context.Context, pairs []pair, runner Runner, opts Options) ([]outcome, error) {
	outcomes := make([]outcome, 0, len(pairs))
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o := runPair(ctx, p, runner, opts)
		if o.ref != nil {
			p.clip.MergeReference(p.test.Name, o.ref)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, ctx.Err()
}

// runParallel runs up to opts.Jobs encodes at once. Writes to a clip are
// serialized by a per-clip lock; outcomes are returned in matrix order.
func runParallel(ctx context.Context, pairs []pair, runner Runner, opts Options) ([]outcome, error) {
	locks := make(map[*otio.Clip]*sync.Mutex)
	for _, p := range pairs {
		if _, ok := locks[p.clip]; !ok {
			locks[p.clip] = &sync.Mutex{}
		}
	}

	var (
		mu       sync.Mutex
		outcomes []outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)

	for _, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lock := locks[p.clip]
			lock.Lock()
			skip := !opts.EncodeAll && runner.IsCurrent(p.clip, p.test)
			view := snapshot(p.clip)
			lock.Unlock()

			var o outcome
			if skip {
				runner.Skip(p.clip, p.test, "current result exists")
				o = outcome{pair: p, skipped: true}
			} else {
				ref, err := runner.RunOne(gctx, view, p.test)
				o = outcome{pair: p, ref: ref, err: err}
				if ref != nil {
					lock.Lock()
					p.clip.MergeReference(p.test.Name, ref)
					lock.Unlock()
				}
			}

			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	slices.SortFunc(outcomes, func(a, b outcome) int {
		if a.clipIdx != b.clipIdx {
			return a.clipIdx - b.clipIdx
		}
		return a.testIdx - b.testIdx
	})
	return outcomes, err
}

func runPair(ctx context.Context, p pair, runner Runner, opts Options) outcome {
	if !opts.EncodeAll && runner.IsCurrent(p.clip, p.test) {
		runner.Skip(p.clip, p.test, "current result exists")
		return outcome{pair: p, skipped: true}
	}
	ref, err := runner.RunOne(ctx, p.clip, p.test)
	return outcome{pair: p, ref: ref, err: err}
}

// snapshot returns a clip sharing the source details of clip but none of its
// test references, so an encode can read it while other encodes write clip.
func snapshot(clip *otio.Clip) *otio.Clip {
	view := otio.NewClip(clip.Name, clip.MediaReference())
	view.SourceRange = clip.SourceRange
	view.Metadata = clip.Metadata
	return view
}

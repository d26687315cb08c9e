// Package batch generates many views of one panorama on a bounded pool of
// workers. Every requested view yields exactly one Outcome; a failing view
// never affects the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/PanSplit/internal/logic/resample"
	"github.com/cjeanneret/PanSplit/internal/panorama"
)

// ErrCancelled marks views that were never started because the batch was
// cancelled.
var ErrCancelled = errors.New("batch: cancelled before start")

// Options configures a Scheduler.
type Options struct {
	Mode       resample.Mode
	MaxWorkers int // <= 0 means runtime.GOMAXPROCS(0)

	// OnComplete is called once per outcome from the goroutine that
	// produced it. It must be safe for concurrent use.
	OnComplete func(Outcome)
}

// Outcome is the result of one view: either Result or Err is set.
type Outcome struct {
	Index  int // position in the requested views
	View   panorama.View
	Result *panorama.Result
	Err    error
}

// OK reports whether the view was generated.
func (o Outcome) OK() bool { return o.Err == nil && o.Result != nil }

// Scheduler runs views against one shared source.
type Scheduler struct {
	src       *panorama.Source
	opts      Options
	cancelled atomic.Bool
}

type task struct {
	index int
	view  panorama.View
}

// New creates a scheduler for src.
func New(src *panorama.Source, opts Options) *Scheduler {
	return &Scheduler{src: src, opts: opts}
}

// Workers returns the effective concurrency limit.
func (s *Scheduler) Workers() int {
	if s.opts.MaxWorkers > 0 {
		return s.opts.MaxWorkers
	}
	return max(runtime.GOMAXPROCS(0), 1)
}

// Cancel stops dispatching new views. Views already running finish; the
// rest complete with ErrCancelled. Cancellation is permanent.
func (s *Scheduler) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel was called or a run's context ended.
func (s *Scheduler) Cancelled() bool { return s.cancelled.Load() }

// Run generates every view and returns len(views) outcomes, outcome i
// belonging to views[i].
func (s *Scheduler) Run(ctx context.Context, views []panorama.View) []Outcome {
	out := make([]Outcome, len(views))
	s.dispatch(ctx, tasksFor(views), func(o Outcome) { out[o.Index] = o })
	return out
}

// Stream generates every view and yields outcomes in completion order.
// The channel is closed after exactly len(views) outcomes.
func (s *Scheduler) Stream(ctx context.Context, views []panorama.View) <-chan Outcome {
	ch := make(chan Outcome, len(views))
	go func() {
		defer close(ch)
		s.dispatch(ctx, tasksFor(views), func(o Outcome) { ch <- o })
	}()
	return ch
}

// Retry re-runs the failed outcomes and returns the merged set in the
// same order. Successful outcomes are kept as they are.
func (s *Scheduler) Retry(ctx context.Context, outcomes []Outcome) []Outcome {
	merged := make([]Outcome, len(outcomes))
	copy(merged, outcomes)

	pos := make(map[int]int)
	var tasks []task
	for i, o := range outcomes {
		if o.OK() {
			continue
		}
		pos[o.Index] = i
		tasks = append(tasks, task{index: o.Index, view: o.View})
	}
	if len(tasks) == 0 {
		return merged
	}

	panorama.Logger().Info("retrying failed views", "id", s.src.ID(), "count", len(tasks))
	results := make([]Outcome, len(tasks))
	byIndex := make(map[int]int, len(tasks))
	for i, t := range tasks {
		byIndex[t.index] = i
	}
	s.dispatch(ctx, tasks, func(o Outcome) { results[byIndex[o.Index]] = o })
	for _, o := range results {
		merged[pos[o.Index]] = o
	}
	return merged
}

func tasksFor(views []panorama.View) []task {
	return lo.Map(views, func(v panorama.View, i int) task {
		return task{index: i, view: v}
	})
}

// dispatch runs tasks on at most Workers() goroutines and hands each
// outcome to emit, then to OnComplete.
func (s *Scheduler) dispatch(ctx context.Context, tasks []task, emit func(Outcome)) {
	start := time.Now()
	finish := func(o Outcome) {
		emit(o)
		if s.opts.OnComplete != nil {
			s.opts.OnComplete(o)
		}
	}

	var g errgroup.Group
	g.SetLimit(s.Workers())
	for _, t := range tasks {
		if s.stopped(ctx) {
			finish(Outcome{Index: t.index, View: t.view, Err: ErrCancelled})
			continue
		}
		g.Go(func() error {
			finish(s.runOne(ctx, t))
			return nil
		})
	}
	_ = g.Wait()

	panorama.Logger().Info("batch finished",
		"id", s.src.ID(),
		"views", len(tasks),
		"elapsed", time.Since(start),
		"cancelled", s.Cancelled())
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		s.cancelled.Store(true)
	}
	return s.cancelled.Load()
}

func (s *Scheduler) runOne(ctx context.Context, t task) (o Outcome) {
	o = Outcome{Index: t.index, View: t.view}
	if s.stopped(ctx) {
		o.Err = ErrCancelled
		return o
	}

	log := panorama.Logger()
	defer func() {
		if r := recover(); r != nil {
			o.Result = nil
			o.Err = &panorama.ResampleError{View: t.view, Err: fmt.Errorf("panic: %v", r)}
		}
		if o.Err != nil {
			log.Warn("view failed", "id", s.src.ID(), "index", t.index, "err", o.Err)
		}
	}()

	log.Debug("view started", "id", s.src.ID(), "index", t.index, "view", t.view.String())
	o.Result, o.Err = s.src.GenerateView(t.view, s.opts.Mode)
	return o
}

// GenerateBatch runs views on a fresh scheduler.
func GenerateBatch(ctx context.Context, src *panorama.Source, views []panorama.View, mode resample.Mode, maxWorkers int) []Outcome {
	return New(src, Options{Mode: mode, MaxWorkers: maxWorkers}).Run(ctx, views)
}

// Count returns how many outcomes succeeded and failed.
func Count(outcomes []Outcome) (ok, failed int) {
	ok = lo.CountBy(outcomes, Outcome.OK)
	return ok, len(outcomes) - ok
}

package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cjeanneret/PanSplit/internal/debug"
	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/logic/batch"
	"github.com/cjeanneret/PanSplit/internal/panorama"
)

// Progress levels passed to Job.Progress.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// ErrNoImages is returned by ProcessDir when the directory holds no
// supported image.
var ErrNoImages = errors.New("no supported images found")

// Summary counts what a job produced.
type Summary struct {
	Images  int // images attempted
	Views   int // views requested over all images
	Saved   int
	Failed  int
	Elapsed time.Duration
}

// Rate returns saved views per second.
func (s Summary) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Saved) / s.Elapsed.Seconds()
}

func (s *Summary) add(o Summary) {
	s.Images += o.Images
	s.Views += o.Views
	s.Saved += o.Saved
	s.Failed += o.Failed
}

// Job splits images according to Request and writes the views with
// Writer. A Job may process several images concurrently; it must not be
// copied after first use.
type Job struct {
	Writer          Writer
	Request         Request
	MaxImageWorkers int // images in flight, <= 0 = one at a time

	// Progress, when set, receives one line per saved or failed view and
	// per finished image. It must be safe for concurrent use.
	Progress func(level, msg string)

	mu         sync.Mutex
	schedulers map[*batch.Scheduler]struct{}
	cancelled  atomic.Bool
}

// Cancel stops the job: running views finish, nothing new starts.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.mu.Lock()
	defer j.mu.Unlock()
	for s := range j.schedulers {
		s.Cancel()
	}
}

// Cancelled reports whether Cancel was called.
func (j *Job) Cancelled() bool { return j.cancelled.Load() }

func (j *Job) track(s *batch.Scheduler) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.schedulers == nil {
		j.schedulers = make(map[*batch.Scheduler]struct{})
	}
	j.schedulers[s] = struct{}{}
	if j.cancelled.Load() {
		s.Cancel()
	}
}

func (j *Job) untrack(s *batch.Scheduler) {
	j.mu.Lock()
	delete(j.schedulers, s)
	j.mu.Unlock()
}

func (j *Job) report(level, format string, args ...interface{}) {
	if j.Progress != nil {
		j.Progress(level, fmt.Sprintf(format, args...))
	}
}

// Process splits path, which may be a single image or a directory.
func (j *Job) Process(ctx context.Context, path string) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, fmt.Errorf("while reading input: %w", err)
	}
	if info.IsDir() {
		return j.ProcessDir(ctx, path)
	}
	views, err := BuildViews(j.Request)
	if err != nil {
		return Summary{}, err
	}
	debug.Plan(1, len(views))
	return j.processImage(ctx, path, views)
}

// ProcessImage loads one panorama once and writes all requested views.
// The error is non-nil only when the image could not be loaded; view
// failures are counted in the summary.
func (j *Job) ProcessImage(ctx context.Context, path string) (Summary, error) {
	views, err := BuildViews(j.Request)
	if err != nil {
		return Summary{}, err
	}
	return j.processImage(ctx, path, views)
}

func (j *Job) processImage(ctx context.Context, path string, views []panorama.View) (Summary, error) {
	start := time.Now()
	sum := Summary{Images: 1, Views: len(views)}
	name := filepath.Base(path)
	j.report(LevelInfo, "Processing: %s", name)

	src, err := panorama.FromFile(PanoramaID(path), path)
	if err != nil {
		sum.Failed = len(views)
		sum.Elapsed = time.Since(start)
		debug.Failed(name, err)
		j.report(LevelError, "✗ Could not read image %s: %v", name, err)
		return sum, err
	}
	debug.Verbose("Loaded %s (%dx%d)", name, src.Width(), src.Height())

	writer := j.Writer.ForInput(path)
	var saved, failed atomic.Int64
	sched := batch.New(src, batch.Options{
		Mode:       j.Request.Mode,
		MaxWorkers: j.Request.MaxWorkers,
		OnComplete: func(o batch.Outcome) {
			if !o.OK() {
				failed.Add(1)
				debug.Failed(o.View.String(), o.Err)
				j.report(LevelError, "✗ %s %s: %v", name, o.View.FileSuffix(), o.Err)
				return
			}
			out, err := writer.Save(o.Result)
			if err != nil {
				failed.Add(1)
				debug.Failed(o.View.String(), err)
				j.report(LevelError, "✗ %v", err)
				return
			}
			saved.Add(1)
			debug.Saved(out)
			j.report(LevelSuccess, "✓ Saved: %s", filepath.Base(out))
		},
	})
	j.track(sched)
	defer j.untrack(sched)
	debug.Trace("%s: %d views on %d workers", name, len(views), sched.Workers())

	// Results are written by OnComplete; draining lets each image be
	// collected as soon as it is saved.
	for o := range sched.Stream(ctx, views) {
		debug.Task(name, o.Index, "done")
	}

	sum.Saved = int(saved.Load())
	sum.Failed = int(failed.Load())
	sum.Elapsed = time.Since(start)
	debug.Live("%s: %d/%d views saved", name, sum.Saved, sum.Views)
	j.report(LevelInfo, "⏱️ Completed %d/%d perspectives in %.2f seconds", sum.Saved, sum.Views, sum.Elapsed.Seconds())
	return sum, nil
}

// ListImages returns the supported images at the root of fsys, sorted
// by name.
func ListImages(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	files := lo.Filter(entries, func(e fs.DirEntry, _ int) bool {
		return e.Type().IsRegular() && imaging.IsSupportedInput(e.Name())
	})
	return lo.Map(files, func(e fs.DirEntry, _ int) string { return e.Name() }), nil
}

func (j *Job) imageWorkers() int64 {
	if j.MaxImageWorkers > 0 {
		return int64(j.MaxImageWorkers)
	}
	return 1
}

// ProcessDir splits every supported image in dir. Images that fail to
// load are counted and skipped.
func (j *Job) ProcessDir(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()
	names, err := ListImages(os.DirFS(dir))
	if err != nil {
		return Summary{}, fmt.Errorf("while listing %s: %w", dir, err)
	}
	if len(names) == 0 {
		return Summary{}, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	views, err := BuildViews(j.Request)
	if err != nil {
		return Summary{}, err
	}
	debug.Plan(len(names), len(views))
	j.report(LevelInfo, "Found %d images to process", len(names))

	var (
		mu    sync.Mutex
		total Summary
		done  int
	)
	var eg errgroup.Group
	sem := semaphore.NewWeighted(j.imageWorkers())
	for _, n := range names {
		if j.Cancelled() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		path := filepath.Join(dir, n)
		eg.Go(func() error {
			defer sem.Release(1)
			s, err := j.processImage(ctx, path, views)
			if err != nil {
				debug.Error(fmt.Errorf("while processing %s: %w", n, err))
			}
			mu.Lock()
			defer mu.Unlock()
			total.add(s)
			done++
			debug.Progress(done, len(names), n)
			return nil
		})
	}
	_ = eg.Wait()

	// Images never started still count towards the requested views.
	if skipped := len(names) - total.Images; skipped > 0 {
		total.Views += skipped * len(views)
		total.Failed += skipped * len(views)
		total.Images += skipped
	}
	total.Elapsed = time.Since(start)
	return total, nil
}

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/PanSplit/internal/config"
	"github.com/cjeanneret/PanSplit/internal/debug"
	"github.com/cjeanneret/PanSplit/internal/logic/export"
	"github.com/cjeanneret/PanSplit/internal/panorama"
)

// maxBodyBytes bounds the POST /run request body.
const maxBodyBytes = 1 << 20

// maxViewSide bounds the requested view width and height.
const maxViewSide = 16384

// defaultCooldown is the minimum delay between two job starts.
const defaultCooldown = 5 * time.Second

// Overrides holds split parameters that can override config defaults.
// An empty Preset means Pitch x Yaw views of FOV degrees.
type Overrides struct {
	FOV    float64   `json:"fov"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Pitch  []float64 `json:"pitch"`
	Yaw    []float64 `json:"yaw"`
	Preset string    `json:"preset,omitempty"`
}

// ValidateOverrides applies the same ranges as the command line.
func ValidateOverrides(o Overrides) error {
	if o.Preset != "" {
		for _, name := range FormPresets() {
			if strings.EqualFold(o.Preset, name) {
				return nil
			}
		}
		return fmt.Errorf("unknown preset %q", o.Preset)
	}
	if err := config.CheckFOV("fov", o.FOV); err != nil {
		return err
	}
	if o.Width <= 0 || o.Width > maxViewSide || o.Height <= 0 || o.Height > maxViewSide {
		return fmt.Errorf("width and height must be between 1 and %d", maxViewSide)
	}
	if len(o.Pitch) == 0 || len(o.Yaw) == 0 {
		return fmt.Errorf("at least one pitch and one yaw are required")
	}
	for _, p := range o.Pitch {
		if math.IsInf(p, 0) {
			return fmt.Errorf("pitch must be finite")
		}
		if err := config.CheckPitch(p); err != nil {
			return err
		}
	}
	for _, y := range o.Yaw {
		if math.IsInf(y, 0) {
			return fmt.Errorf("yaw must be finite")
		}
		if err := config.CheckYaw(y); err != nil {
			return err
		}
	}
	return nil
}

// FormPresets lists the preset names accepted by POST /run.
func FormPresets() []string {
	return append(panorama.PresetNames(), export.GridPreset)
}

// RunSplitFunc runs a split job with the given overrides and returns what
// it produced. It is called from the POST /run handler in a goroutine; ctx
// is cancelled by POST /cancel and on server shutdown.
type RunSplitFunc func(ctx context.Context, jobID string, overrides Overrides) (export.Summary, error)

// FormConfig holds default values for the split form (from config).
type FormConfig struct {
	InputPath string    `json:"input_path"`
	FOV       float64   `json:"fov"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Pitch     []float64 `json:"pitch"`
	Yaw       []float64 `json:"yaw"`
	Presets   []string  `json:"presets"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Events       *EventHub
	RunSplit     RunSplitFunc
	FormDefaults FormConfig
	Cooldown     time.Duration

	runningMu sync.Mutex
	running   bool
	jobID     string
	cancel    context.CancelFunc
	lastStart time.Time
	closed    bool
	stop      chan struct{} // closed by Shutdown, ends status streams
	jobs      sync.WaitGroup

	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If runSplit is nil, POST /run will return 503 Service Unavailable.
func NewHandlers(events *EventHub, runSplit RunSplitFunc, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Events:       events,
		RunSplit:     runSplit,
		FormDefaults: formDefaults,
		Cooldown:     defaultCooldown,
		stop:         make(chan struct{}),
		staticFS:     staticFS,
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HandleRun handles POST /run to start a split job.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var overrides Overrides
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateOverrides(overrides); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.RunSplit == nil {
		http.Error(w, "splitting not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.closed {
		h.runningMu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "a job is already in progress", http.StatusConflict)
		return
	}
	if !h.lastStart.IsZero() && time.Since(h.lastStart) < h.Cooldown {
		h.runningMu.Unlock()
		http.Error(w, "too many requests, retry later", http.StatusTooManyRequests)
		return
	}
	jobID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.jobID = jobID
	h.cancel = cancel
	h.lastStart = time.Now()
	h.jobs.Add(1)
	h.runningMu.Unlock()

	go func() {
		defer h.jobs.Done()
		defer func() {
			cancel()
			h.runningMu.Lock()
			h.running = false
			h.jobID = ""
			h.cancel = nil
			h.runningMu.Unlock()
		}()
		h.runJob(ctx, jobID, overrides)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "job_id": jobID})
}

// HandleCancel handles POST /cancel: the running job stops dispatching
// views and finishes the ones in flight.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.runningMu.Lock()
	if !h.running || h.cancel == nil {
		h.runningMu.Unlock()
		http.Error(w, "no job in progress", http.StatusConflict)
		return
	}
	jobID := h.jobID
	h.cancel()
	h.runningMu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling", "job_id": jobID})
}

func (h *Handlers) runJob(ctx context.Context, jobID string, overrides Overrides) {
	debug.Info("Job %s started", jobID)
	h.Events.Publish(Event{Level: export.LevelInfo, JobID: jobID, Msg: "Job started"})

	sum, err := h.RunSplit(ctx, jobID, overrides)
	switch {
	case err != nil:
		debug.Error(fmt.Errorf("job %s: %w", jobID, err))
		h.Events.jobDone(jobID, export.LevelError, "Job failed: "+err.Error(), sum)
	case ctx.Err() != nil:
		debug.Info("Job %s cancelled", jobID)
		h.Events.jobDone(jobID, export.LevelInfo, "Job cancelled", sum)
	default:
		debug.Info("Job %s complete: %d/%d views", jobID, sum.Saved, sum.Views)
		h.Events.jobDone(jobID, export.LevelSuccess,
			fmt.Sprintf("Job complete: %d/%d images in %.2f seconds", sum.Saved, sum.Views, sum.Elapsed.Seconds()), sum)
	}
}

// Shutdown refuses new jobs, cancels the running one and waits for it to
// return, then ends the status streams. Views in flight are written before
// the job returns.
func (h *Handlers) Shutdown(ctx context.Context) error {
	defer h.closeStreams()
	h.runningMu.Lock()
	h.closed = true
	if h.cancel != nil {
		h.cancel()
	}
	h.runningMu.Unlock()

	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("while waiting for the running job: %w", ctx.Err())
	}
}

func (h *Handlers) closeStreams() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}

// Running reports whether a job is in progress.
func (h *Handlers) Running() bool {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	return h.running
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Events.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, evt)
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return

		case <-h.stop:
			// Deliver what was published before shutdown.
			for {
				select {
				case evt := <-ch:
					writeEvent(w, evt)
				default:
					flusher.Flush()
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		debug.Error(fmt.Errorf("while encoding status event: %w", err))
		return
	}
	w.Write([]byte("data: " + string(data) + "\n\n"))
}

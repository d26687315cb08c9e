package web

import (
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/PanSplit/internal/logic/export"
)

// subscriberBuffer is the number of events a slow client may lag behind
// before new events are dropped for it.
const subscriberBuffer = 64

// Event is one line on /status/stream. Job events carry the job id;
// progress and end-of-job events also carry the view counters.
type Event struct {
	Time  time.Time `json:"t"`
	Level string    `json:"l,omitempty"`
	JobID string    `json:"job,omitempty"`
	Msg   string    `json:"msg"`
	Stats *JobStats `json:"stats,omitempty"`
}

// JobStats counts the views of a split job. Views and Seconds are only
// known once the job is over.
type JobStats struct {
	Saved   int     `json:"saved"`
	Failed  int     `json:"failed"`
	Views   int     `json:"views,omitempty"`
	Images  int     `json:"images,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
}

func statsOf(s export.Summary) *JobStats {
	return &JobStats{
		Saved:   s.Saved,
		Failed:  s.Failed,
		Views:   s.Views,
		Images:  s.Images,
		Seconds: s.Elapsed.Seconds(),
	}
}

// EventHub fans split events out to every /status/stream client.
type EventHub struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	dropped atomic.Int64
}

// NewEventHub returns a hub with no subscribers.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a client. The returned func unregisters it and
// closes the channel; call it when the client goes away.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps e and hands it to every subscriber without blocking.
// A subscriber with a full buffer misses the event.
func (h *EventHub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped for slow clients.
func (h *EventHub) Dropped() int64 { return h.dropped.Load() }

// Log publishes a message that belongs to no job.
func (h *EventHub) Log(level, msg string) {
	h.Publish(Event{Level: level, Msg: msg})
}

// JobProgress returns an export.Job Progress callback that tags every
// line with jobID and keeps running saved/failed counts.
func (h *EventHub) JobProgress(jobID string) func(level, msg string) {
	var saved, failed atomic.Int64
	return func(level, msg string) {
		switch level {
		case export.LevelSuccess:
			saved.Add(1)
		case export.LevelError:
			failed.Add(1)
		}
		h.Publish(Event{
			Level: level,
			JobID: jobID,
			Msg:   msg,
			Stats: &JobStats{Saved: int(saved.Load()), Failed: int(failed.Load())},
		})
	}
}

// jobDone publishes the final event of a job.
func (h *EventHub) jobDone(jobID, level, msg string, sum export.Summary) {
	h.Publish(Event{Level: level, JobID: jobID, Msg: msg, Stats: statsOf(sum)})
}

// Writer returns an io.Writer publishing each non-blank write as an info
// event. It feeds the debug log mirror.
func (h *EventHub) Writer() io.Writer { return hubWriter{h} }

type hubWriter struct{ h *EventHub }

func (w hubWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.h.Log(export.LevelInfo, msg)
	}
	return len(p), nil
}

package debug

import (
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (view count, plan, summary)
	LevelLive    = 2 // Live info (views saved, images finished)
	LevelVerbose = 3 // Verbose (calculation details, values, sections)
	LevelTrace   = 4 // Trace (per-task scheduling, very low level)
)

var (
	level int

	mirrorMu sync.Mutex
	mirror   io.Writer
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (view plan, totals)
// 2 = live info (each saved view)
// 3 = verbose (FOV, angles, config values)
// 4 = trace (per-task scheduling)
func Init(debugLevel int) {
	level = debugLevel
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// SetMirror copies every emitted line to w (nil disables). The web
// server uses it to stream progress to its clients.
func SetMirror(w io.Writer) {
	mirrorMu.Lock()
	mirror = w
	mirrorMu.Unlock()
}

// logf sends one line to glog and to the mirror. Callers are exported
// functions of this package, so depth 2 reports their caller.
func logf(isErr bool, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if isErr {
		glog.ErrorDepth(2, line)
	} else {
		glog.InfoDepth(2, line)
	}

	mirrorMu.Lock()
	defer mirrorMu.Unlock()
	if mirror != nil {
		_, _ = io.WriteString(mirror, line+"\n")
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logf(false, "[INFO] "+format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if level >= LevelInfo {
		logf(false, "═══════════════════════════════════════")
		logf(false, "  %s", title)
		logf(false, "═══════════════════════════════════════")
	}
}

// Plan prints the number of views to generate (level 1).
func Plan(images, viewsPerImage int) {
	if level >= LevelInfo {
		logf(false, "[INFO] Plan: %d image(s) x %d view(s) = %d views total", images, viewsPerImage, images*viewsPerImage)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive {
		logf(false, "[LIVE] "+format, args...)
	}
}

// Saved prints a written view (level 2).
func Saved(path string) {
	if level >= LevelLive {
		logf(false, "[LIVE] ✓ Saved %s", path)
	}
}

// Failed prints a view that could not be generated or saved (level 1+).
func Failed(what string, err error) {
	if level >= LevelInfo {
		logf(true, "[ERROR] ✗ %s: %v", what, err)
	}
}

// Progress prints how many images are done (level 2).
func Progress(done, total int, name string) {
	if level >= LevelLive {
		logf(false, "[LIVE] Image %d/%d done: %s", done, total, name)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose {
		logf(false, "[VERBOSE] "+format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose {
		logf(false, "[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose {
		logf(false, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logf(false, "  %s", name)
		logf(false, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose {
		logf(false, "[VERBOSE] Step %d: %s", num, description)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo {
		logf(false, "[INFO]   %s = %v", name, value)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace {
		logf(false, "[TRACE] "+format, args...)
	}
}

// Task prints a scheduling event for one view (level 4).
func Task(image string, index int, event string) {
	if level >= LevelTrace {
		logf(false, "[TASK] %s view=%d %s", image, index, event)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo {
		logf(true, "[ERROR] %v", err)
	}
}

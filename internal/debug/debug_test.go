package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func withLevel(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Level()
	Init(lvl)
	SetMirror(&buf)
	t.Cleanup(func() {
		Init(prev)
		SetMirror(nil)
	})
	return &buf
}

func TestLevelGating(t *testing.T) {
	cases := []struct {
		name    string
		level   int
		emit    func()
		wantOut bool
	}{
		{"info_at_off", LevelOff, func() { Info("hello") }, false},
		{"info_at_info", LevelInfo, func() { Info("hello") }, true},
		{"live_at_info", LevelInfo, func() { Live("hello") }, false},
		{"live_at_live", LevelLive, func() { Saved("out/a.png") }, true},
		{"verbose_at_live", LevelLive, func() { Verbose("x=%d", 1) }, false},
		{"section_at_verbose", LevelVerbose, func() { Section("Plan") }, true},
		{"trace_at_verbose", LevelVerbose, func() { Task("pano", 3, "started") }, false},
		{"trace_at_trace", LevelTrace, func() { Trace("deep") }, true},
		{"failed_at_info", LevelInfo, func() { Failed("view", errors.New("boom")) }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := withLevel(t, tc.level)
			tc.emit()
			if got := buf.Len() > 0; got != tc.wantOut {
				t.Errorf("output = %q, want output: %v", buf.String(), tc.wantOut)
			}
		})
	}
}

func TestMirrorLines(t *testing.T) {
	buf := withLevel(t, LevelVerbose)
	Plan(2, 6)
	Value("FOV", 90)
	Failed("pano_pitch90_yaw0_fov90.png", errors.New("disk full"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	want := []string{
		"[INFO] Plan: 2 image(s) x 6 view(s) = 12 views total",
		"[INFO]   FOV = 90",
		"[ERROR] ✗ pano_pitch90_yaw0_fov90.png: disk full",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

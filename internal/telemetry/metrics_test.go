package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("edge")
	r.SetFetchAttempts(2)
	r.ObserveStage("decode", 250*time.Millisecond)
	r.SetProcessingTime(10.02)
	r.Finish(true, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "image_transform.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		`image_transform_fetch_attempts{type="edge"} 2`,
		`image_transform_stage_seconds{stage="decode",type="edge"} 0.25`,
		`image_transform_processing_seconds{type="edge"} 10.02`,
		`image_transform_last_success{type="edge"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q:\n%s", want, text)
		}
	}
}

func TestRecorder_Finish(t *testing.T) {
	r := NewRecorder("fft")
	r.Finish(false, time.Unix(1, 0))
	if got := testutil.ToFloat64(r.success); got != 0 {
		t.Errorf("success: got %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.lastRun); got != 1 {
		t.Errorf("last run: got %v, want 1", got)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.SetFetchAttempts(1)
	r.ObserveStage("fetch", time.Second)
	r.SetProcessingTime(1)
	r.Finish(true, time.Now())
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("nil recorder WriteTextfile: %v", err)
	}
}

func TestRecorder_StageSeries(t *testing.T) {
	r := NewRecorder("3d")
	r.ObserveStage("fetch", time.Millisecond)
	r.ObserveStage("decode", time.Millisecond)

	n, err := testutil.GatherAndCount(r.reg, "image_transform_stage_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("stage series: got %d, want 2", n)
	}
}

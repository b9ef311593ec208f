package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "create_request", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_request", true, 3*time.Millisecond)
	rec.Observe(ctx, "create_request", false, 2*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if snap.Results["create_request"]["success"] != 2 {
		t.Fatalf("expected 2 successes, got %+v", snap.Results)
	}
	if snap.Results["create_request"]["error"] != 1 {
		t.Fatalf("expected 1 error, got %+v", snap.Results)
	}
	if got := snap.DurationsMS["create_request"]; got < 9.99 || got > 10.01 {
		t.Fatalf("expected ~10ms total, got %v", got)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("empty operation must be ignored, got %+v", snap.Results)
	}
}

func TestExpvarMetricsRecorderUniqueNames(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == b.Name() {
		t.Fatalf("expected distinct generated names, both %q", a.Name())
	}
	if !strings.HasPrefix(a.Name(), "core_service_metrics_") {
		t.Fatalf("unexpected generated name %q", a.Name())
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "create_request")
	span.End(nil)
	_, span = tracer.Start(ctx, "set_request_status")
	span.End(errors.New("blocked"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[0].Operation != "create_request" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "blocked" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	dec := json.NewDecoder(&buf)
	var decoded JSONTraceEntry
	if err := dec.Decode(&decoded); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if decoded.Operation != "create_request" {
		t.Fatalf("unexpected serialized operation %q", decoded.Operation)
	}
}

func TestJSONTracerNilWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "append_note")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatalf("expected span retained without writer")
	}
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/induction/core/metrics"
)

func TestInfluxSink_RecordRun(t *testing.T) {
	var mu sync.Mutex
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	ev := coremetrics.RunEvent{
		RunID:       "run-1",
		Engine:      "branch-and-bound",
		Status:      "OPTIMAL",
		Outcome:     coremetrics.OutcomeOK,
		Vehicles:    5,
		Service:     3,
		Standby:     1,
		Maintenance: 1,
		Objective:   42,
		Bound:       42,
		SolveTime:   1500 * time.Millisecond,
		Time:        time.Unix(1700000000, 0),
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	mu.Lock()
	got := body
	mu.Unlock()
	for _, want := range []string{"induction_run,", "run_id=run-1", "status=OPTIMAL", "service=3i", "objective=42i", "solve_ms=1500", "1700000000000000000"} {
		if !strings.Contains(got, want) {
			t.Errorf("body %q missing %q", got, want)
		}
	}

	if err := sink.RecordStage(coremetrics.StageEvent{RunID: "run-1", Stage: "solve", Duration: time.Second, Time: time.Unix(1700000000, 0)}); err != nil {
		t.Fatalf("record stage: %v", err)
	}
	mu.Lock()
	got = body
	mu.Unlock()
	if !strings.Contains(got, "induction_stage,") || !strings.Contains(got, "stage=solve") {
		t.Errorf("unexpected stage body %q", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestInfluxConfigValidate(t *testing.T) {
	if err := (InfluxConfig{URL: "http://x"}).Validate(); err == nil {
		t.Fatalf("expected error for missing org and bucket")
	}
}

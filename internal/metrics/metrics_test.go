package metrics

import (
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_nilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAnswer("answered", "")
	m.ObserveBuild(true, time.Second)
	m.PersistFailed()
	m.GenerationFailed()
	m.ObserveEmbed("QUERY", time.Millisecond)
	m.ObserveScore(1)
	m.SetPassages("test", 3)
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveAnswer("not_found", "below_threshold")
	m.ObserveBuild(false, 2*time.Second)
	m.PersistFailed()
	m.ObserveScore(math.Inf(-1))
	m.ObserveScore(0.7)
	m.SetPassages("test", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`kotae_answers_total{kind="not_found",reason="below_threshold"} 1`,
		`kotae_index_builds_total{status="failure"} 1`,
		`kotae_index_persist_failures_total 1`,
		`kotae_best_match_score_count 1`,
		`kotae_index_passages{key="test"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

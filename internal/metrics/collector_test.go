package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndRender(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.Counter("calcbot_test_total", "test counter")
	ctr.Inc()
	ctr.Add(2)

	if ctr.Value() != 3 {
		t.Fatalf("counter = %d, want 3", ctr.Value())
	}

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "calcbot_test_total 3") {
		t.Errorf("exposition missing counter:\n%s", body)
	}
	if !strings.Contains(body, "calcbot_uptime_seconds") {
		t.Errorf("exposition missing uptime:\n%s", body)
	}
}

func TestHistogramBuckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("calcbot_test_seconds", "test histogram", []float64{0.01, 0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `calcbot_test_seconds_bucket{le="0.1"} 1`) {
		t.Errorf("unexpected bucket counts:\n%s", body)
	}
	if !strings.Contains(body, "calcbot_test_seconds_count 2") {
		t.Errorf("unexpected count:\n%s", body)
	}
}

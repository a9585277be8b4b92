package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsWith_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.SignalsTotal.WithLabelValues("BUY").Inc()
	m.SignalsTotal.WithLabelValues("NO SIGNAL").Add(3)
	m.RSIAmbiguity.Inc()

	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("NO SIGNAL")); got != 3 {
		t.Errorf("no-signal count=%v, want 3", got)
	}
	n, err := testutil.GatherAndCount(reg, "robot_signals_total", "robot_rsi_division_ambiguity_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 3 {
		t.Errorf("series=%d, want 3", n)
	}
}

func TestHealthz(t *testing.T) {
	start := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	h := NewHealthStatus()
	h.StartedAt = start
	h.now = func() time.Time { return start.Add(90 * time.Second) }

	get := func() (int, healthReport) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		var rep healthReport
		if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return rec.Code, rep
	}

	code, rep := get()
	if code != http.StatusServiceUnavailable || rep.Status != "unhealthy" {
		t.Errorf("no sqlite: code=%d status=%s", code, rep.Status)
	}

	h.SetSQLiteOK(true)
	code, rep = get()
	if code != http.StatusOK || rep.Status != "degraded" {
		t.Errorf("no redis: code=%d status=%s", code, rep.Status)
	}

	h.SetRedisConnected(true)
	h.SetMarketOpen(true)
	h.RecordCycle(start.Add(60*time.Second), 4)
	code, rep = get()
	if code != http.StatusOK || rep.Status != "healthy" {
		t.Errorf("healthy: code=%d status=%s", code, rep.Status)
	}
	if rep.Uptime != "1m30s" || rep.CycleAge != "30s" || rep.SymbolsTracked != 4 || !rep.MarketOpen {
		t.Errorf("report: %+v", rep)
	}
}

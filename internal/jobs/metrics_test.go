package jobs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsObserveClaimRecordsSample(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.observeClaim(time.Now().Add(-2 * time.Second))

	metric := &dto.Metric{}
	if err := m.ClaimLatency.(prometheus.Metric).Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one observed sample, got %d", metric.GetHistogram().GetSampleCount())
	}
}

func TestMetricsNilSafeObserveClaim(t *testing.T) {
	var m *Metrics
	m.observeClaim(time.Now())
}

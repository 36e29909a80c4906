package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDistributionMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDistributionMetrics(reg)
	property := "42"
	m.ObserveDeposit(property, 1000)
	m.ObserveClaim(property, 600, 250*time.Millisecond)
	m.IncRoundFinalized(property)
	m.IncRoundClosed(property)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "distribution_deposits_total", "property", property); err != nil {
		t.Fatalf("fetch deposits: %v", err)
	} else if got != 1 {
		t.Fatalf("expected deposits=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "distribution_deposited_units_total", "property", property); err != nil {
		t.Fatalf("fetch deposited units: %v", err)
	} else if got != 1000 {
		t.Fatalf("expected deposited units=1000, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "distribution_claimed_units_total", "property", property); err != nil {
		t.Fatalf("fetch claimed units: %v", err)
	} else if got != 600 {
		t.Fatalf("expected claimed units=600, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "distribution_rounds_finalized_total", "property", property); err != nil {
		t.Fatalf("fetch finalized: %v", err)
	} else if got != 1 {
		t.Fatalf("expected finalized=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "distribution_claim_duration_seconds", "property", property); err != nil {
		t.Fatalf("fetch claim duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOutboxMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("distribution.claimed")
	m.IncFailed("distribution.claimed")
	m.IncDLQ("max_attempts_exceeded")
	m.ObserveBatch("ok", 100*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "distribution.claimed"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_dlq_total", "reason", "max_attempts_exceeded"); err != nil {
		t.Fatalf("fetch dlq: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dlq=1, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

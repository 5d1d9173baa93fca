package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestMetricsNamespace(t *testing.T) {
	if Namespace != "clustersync" {
		t.Errorf("expected namespace 'clustersync', got %s", Namespace)
	}
}

func TestRecordClassification(t *testing.T) {
	ResetMetrics()

	RecordClassification("resource-a", "RECOVERY_BALANCE")
	RecordClassification("resource-a", "RECOVERY_BALANCE")

	metric := &dto.Metric{}
	err := PartitionsClassifiedTotal.WithLabelValues("resource-a", "RECOVERY_BALANCE").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("expected value 2, got %f", metric.Counter.GetValue())
	}
}

func TestRecordThrottled(t *testing.T) {
	ResetMetrics()

	RecordThrottled("resource-b", "LOAD_BALANCE")

	metric := &dto.Metric{}
	err := PartitionsThrottledTotal.WithLabelValues("resource-b", "LOAD_BALANCE").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("expected value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordVersionGateFailure(t *testing.T) {
	ResetMetrics()

	RecordVersionGateFailure("incompatible_version")

	metric := &dto.Metric{}
	err := VersionGateFailuresTotal.WithLabelValues("incompatible_version").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("expected value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordComputeError(t *testing.T) {
	ResetMetrics()

	RecordComputeError("missing_input")

	metric := &dto.Metric{}
	err := ComputeErrorsTotal.WithLabelValues("missing_input").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("expected value 1, got %f", metric.Counter.GetValue())
	}
}

func TestObserveComputeDuration(t *testing.T) {
	ResetMetrics()

	ObserveComputeDuration("success", 0.01)

	metric := &dto.Metric{}
	err := ComputeDuration.WithLabelValues("success").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected sample count 1, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordResourceProcessed(t *testing.T) {
	ResetMetrics()

	RecordResourceProcessed("FULL_AUTO")

	metric := &dto.Metric{}
	err := ResourcesProcessedTotal.WithLabelValues("FULL_AUTO").Write(metric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("expected value 1, got %f", metric.Counter.GetValue())
	}
}

package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, name string, inc func()) float64 {
	t.Helper()
	inc()

	m := &dto.Metric{}
	switch name {
	case "rewrites":
		if err := RewritesTotal.WithLabelValues(StatusAdjusted).Write(m); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	case "offset_source":
		if err := OffsetSourceTotal.WithLabelValues(SourceText).Write(m); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	return m.GetCounter().GetValue()
}

func TestCountersIncrement(t *testing.T) {
	before := counterValue(t, "rewrites", func() {})
	after := counterValue(t, "rewrites", func() {
		RewritesTotal.WithLabelValues(StatusAdjusted).Inc()
	})
	if after != before+1 {
		t.Errorf("rewrites counter went %v -> %v, want +1", before, after)
	}

	before = counterValue(t, "offset_source", func() {})
	after = counterValue(t, "offset_source", func() {
		OffsetSourceTotal.WithLabelValues(SourceText).Inc()
	})
	if after != before+1 {
		t.Errorf("offset source counter went %v -> %v, want +1", before, after)
	}
}

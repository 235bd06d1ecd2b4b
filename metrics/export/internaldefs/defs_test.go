package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestEveryCounterHasUniqueName(t *testing.T) {
	seen := map[string]bool{}
	ids := map[goSession.MetricID]bool{}
	for _, d := range CounterDefs {
		if !strings.HasPrefix(d.Name, "gosession_") || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("bad counter name %q", d.Name)
		}
		if seen[d.Name] || ids[d.ID] {
			t.Fatalf("duplicate definition %q", d.Name)
		}
		seen[d.Name] = true
		ids[d.ID] = true
	}
	if ids[goSession.MetricRefreshLatency] {
		t.Fatal("histogram id listed as counter")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3, 9}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(HistogramBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bounds and suffixes disagree")
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDiff(t *testing.T) {
	before := testutil.ToFloat64(DiffsProcessed.WithLabelValues(OutcomeValid))
	RecordDiff(OutcomeValid, 0.01)
	after := testutil.ToFloat64(DiffsProcessed.WithLabelValues(OutcomeValid))
	if after != before+1 {
		t.Errorf("valid diffs: expected %v, got %v", before+1, after)
	}
}

func TestRecordList(t *testing.T) {
	RecordList(1000, 5, 3)
	if got := testutil.ToFloat64(ListHeight); got != 1000 {
		t.Errorf("list height: expected 1000, got %v", got)
	}
	if got := testutil.ToFloat64(ListEntries.WithLabelValues("valid")); got != 3 {
		t.Errorf("valid entries: expected 3, got %v", got)
	}
}

func TestRecordRetrievals(t *testing.T) {
	RecordRetrievals(4, 2, 1, 0)
	if got := testutil.ToFloat64(Retrievals.WithLabelValues("inflight")); got != 1 {
		t.Errorf("in-flight retrievals: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(CachedLists); got != 4 {
		t.Errorf("cached lists: expected 4, got %v", got)
	}
}

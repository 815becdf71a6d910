package ddns

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePass(t *testing.T) {
	created := testutil.ToFloat64(recordOutcomesTotal.WithLabelValues("created"))
	failed := testutil.ToFloat64(recordOutcomesTotal.WithLabelValues("failed"))
	failures := testutil.ToFloat64(passesTotal.WithLabelValues("failure"))

	observePass(Report{
		Outcomes: []Outcome{
			{Action: Created},
			{Action: Failed, Err: ErrTransport},
			{Action: Created},
		},
		Elapsed: time.Second,
	})

	if expected, got := 2.0, testutil.ToFloat64(recordOutcomesTotal.WithLabelValues("created"))-created; expected != got {
		t.Fatalf("Expected %v created outcomes; got %v", expected, got)
	}
	if expected, got := 1.0, testutil.ToFloat64(recordOutcomesTotal.WithLabelValues("failed"))-failed; expected != got {
		t.Fatalf("Expected %v failed outcome; got %v", expected, got)
	}
	if expected, got := 1.0, testutil.ToFloat64(passesTotal.WithLabelValues("failure"))-failures; expected != got {
		t.Fatalf("Expected %v failed pass; got %v", expected, got)
	}
}

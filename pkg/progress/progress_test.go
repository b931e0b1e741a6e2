package progress

import "testing"

func TestNewNilCallbackYieldsNilReporter(t *testing.T) {
	r := New(nil)
	if r != nil {
		t.Fatal("New(nil) should return a nil *Reporter")
	}
	// Must not panic on a nil receiver.
	r.Report(Event{Stage: "x"})
	r.Final(Event{Stage: "x"})
}

func TestReportDeliversFirstCall(t *testing.T) {
	var got []Event
	r := New(func(ev Event) { got = append(got, ev) })
	r.Report(Event{Stage: "ingest", Processed: 1})
	if len(got) != 1 {
		t.Fatalf("expected first Report call to be delivered immediately, got %d events", len(got))
	}
}

func TestReportThrottlesBurst(t *testing.T) {
	var got []Event
	r := New(func(ev Event) { got = append(got, ev) })
	for i := 0; i < 100; i++ {
		r.Report(Event{Stage: "ingest", Processed: int64(i)})
	}
	if len(got) != 1 {
		t.Fatalf("expected burst of 100 rapid reports to collapse to 1, got %d", len(got))
	}
}

func TestFinalAlwaysDelivers(t *testing.T) {
	var got []Event
	r := New(func(ev Event) { got = append(got, ev) })
	r.Report(Event{Processed: 1})
	r.Final(Event{Processed: 2})
	if len(got) != 2 {
		t.Fatalf("expected Report+Final to both deliver, got %d events", len(got))
	}
}

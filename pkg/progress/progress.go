// Package progress implements the throttled progress-callback helper
// (C15): ingestion (pkg/builder, pkg/ingest) and changeset apply
// report progress at most once per
// wall-clock second, matching spec.md §7's "advisory, at-most-once-
// per-second" contract.
package progress

import (
	"time"

	"golang.org/x/time/rate"
)

// Event describes one progress update. Fields are populated by the
// caller; Reporter only controls the delivery cadence.
type Event struct {
	Stage     string
	Processed int64
	Total     int64 // 0 if unknown
}

// Callback receives throttled Events. Implementations must not block
// significantly, since they run inline with the reporting call.
type Callback func(Event)

// Reporter throttles Report calls to at most once per second via
// golang.org/x/time/rate, the same limiter the teacher's HTTP
// connector uses to pace outbound calls
// (platform/ucl-core/internal/connector/http/client.go).
type Reporter struct {
	limiter *rate.Limiter
	cb      Callback
}

// New returns a Reporter that invokes cb at most once per second. A
// nil cb makes Report a no-op, so callers can pass a nil Reporter
// pointer-safe default without branching at every call site.
func New(cb Callback) *Reporter {
	if cb == nil {
		return nil
	}
	return &Reporter{limiter: rate.NewLimiter(rate.Every(time.Second), 1), cb: cb}
}

// Report delivers ev to the callback if the rate limiter currently has
// a token available; otherwise it is silently dropped. Report is safe
// to call on a nil *Reporter (no-op), so callers need not nil-check
// before every report.
func (r *Reporter) Report(ev Event) {
	if r == nil || r.cb == nil {
		return
	}
	if r.limiter.Allow() {
		r.cb(ev)
	}
}

// Final always delivers ev regardless of the rate limit, used once at
// the end of an operation so callers see a guaranteed 100%-complete
// event even if the last tick was recently consumed.
func (r *Reporter) Final(ev Event) {
	if r == nil || r.cb == nil {
		return
	}
	r.cb(ev)
}

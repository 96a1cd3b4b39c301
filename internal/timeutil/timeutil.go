// Package timeutil normalizes the heterogeneous ISO-8601 timestamps
// the upstream calendar sources emit into canonical UTC instants.
package timeutil

import "time"

// naiveLayout matches timestamps that carry no offset at all.
const naiveLayout = "2006-01-02T15:04:05"

// Parse parses an ISO-8601 timestamp string. A trailing "Z" is
// equivalent to "+00:00", and a timestamp with no offset is taken to
// be UTC. That last rule is deliberate and load-bearing: some sources
// emit naive local-looking strings, and the store has always treated
// those as UTC; changing the assumption would change every duplicate
// comparison against existing data.
//
// Malformed input reports ok=false and never fails the caller.
func Parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(naiveLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ToUTC converts an instant to UTC. Idempotent.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// WithinTolerance reports whether two instants are strictly less than
// toleranceSeconds apart once both are normalized to UTC.
func WithinTolerance(a, b time.Time, toleranceSeconds int) bool {
	d := ToUTC(a).Sub(ToUTC(b))
	if d < 0 {
		d = -d
	}
	return d < time.Duration(toleranceSeconds)*time.Second
}

// Format renders an instant as an ISO-8601 UTC string, the format used
// for server-assigned timestamps and time-window bounds.
func Format(t time.Time) string {
	return ToUTC(t).Format(time.RFC3339)
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	utc := time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"zulu suffix", "2025-12-01T15:00:00Z", utc, true},
		{"explicit utc offset", "2025-12-01T15:00:00+00:00", utc, true},
		{"negative offset", "2025-12-01T07:00:00-08:00", utc, true},
		{"positive offset", "2025-12-01T16:00:00+01:00", utc, true},
		{"naive treated as utc", "2025-12-01T15:00:00", utc, true},
		{"empty", "", time.Time{}, false},
		{"date only", "2025-12-01", time.Time{}, false},
		{"garbage", "not-a-time", time.Time{}, false},
		{"truncated", "2025-12-01T15:00", time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.input)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
			}
		})
	}
}

func TestToUTCIdempotent(t *testing.T) {
	pst := time.FixedZone("PST", -8*3600)
	instants := []time.Time{
		time.Date(2025, 12, 1, 7, 0, 0, 0, pst),
		time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC),
	}
	for _, x := range instants {
		require.Equal(t, ToUTC(x), ToUTC(ToUTC(x)))
	}
}

func TestWithinTolerance(t *testing.T) {
	base := time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC)

	require.True(t, WithinTolerance(base, base, 60))
	require.True(t, WithinTolerance(base, base.Add(59*time.Second), 60))
	// Strict less-than: exactly the tolerance is not within it.
	require.False(t, WithinTolerance(base, base.Add(60*time.Second), 60))
	require.False(t, WithinTolerance(base, base.Add(61*time.Second), 60))

	// Same instant expressed in a different zone compares equal.
	pst := time.FixedZone("PST", -8*3600)
	require.True(t, WithinTolerance(base, time.Date(2025, 12, 1, 7, 0, 30, 0, pst), 60))
}

func TestWithinToleranceSymmetry(t *testing.T) {
	a := time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC)
	for _, d := range []time.Duration{0, time.Second, 59 * time.Second, 60 * time.Second, time.Hour} {
		b := a.Add(d)
		require.Equal(t, WithinTolerance(a, b, 60), WithinTolerance(b, a, 60), "offset %v", d)
	}
}

func TestFormat(t *testing.T) {
	pst := time.FixedZone("PST", -8*3600)
	require.Equal(t, "2025-12-01T15:00:00Z", Format(time.Date(2025, 12, 1, 7, 0, 0, 0, pst)))
}

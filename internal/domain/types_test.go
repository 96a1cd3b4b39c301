package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseID(t *testing.T) {
	cases := []struct {
		name    string
		eventID string
		want    string
	}{
		{"occurrence suffix stripped", "series1_20251201T150000", "series1"},
		{"no suffix", "plainevent", "plainevent"},
		{"underscore but not a timestamp", "abc_def", "abc_def"},
		{"suffix too short", "abc_20251201T1500", "abc_20251201T1500"},
		{"suffix too long", "abc_20251201T1500000", "abc_20251201T1500000"},
		{"letters in date part", "abc_2025120xT150000", "abc_2025120xT150000"},
		{"letters in time part", "abc_20251201T15000x", "abc_20251201T15000x"},
		{"missing T separator", "abc_202512011150000", "abc_202512011150000"},
		{"multiple underscores", "team_sync_20251201T150000", "team_sync"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, BaseID(tc.eventID))
		})
	}
}

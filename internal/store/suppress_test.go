package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"calstore/internal/dedup"
	"calstore/internal/domain"
)

func TestSeriesSuppressionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	start := now.AddDate(0, 0, 2).Format("2006-01-02") + "T15:00:00Z"
	_, _, err := s.SaveAppointments([]domain.Candidate{
		{ID: "series1_20250617T150000", Subject: "X", StartTime: start, Source: "ics"},
	}, dedup.Rules{})
	require.NoError(t, err)

	require.NoError(t, s.AddIgnoredSeries("series1", "X", "User ignored"))

	events, err := s.QueryEvents(0, 7, "")
	require.NoError(t, err)
	require.Empty(t, events)

	// The record itself is untouched; lifting the suppression
	// restores visibility.
	require.Equal(t, 1, countRows(t, s, "appointments"))
	require.NoError(t, s.RemoveIgnoredSeries("series1"))
	events, err = s.QueryEvents(0, 7, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "series1_20250617T150000", events[0].ID)
}

func TestOccurrenceSuppression(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	day := now.AddDate(0, 0, 1).Format("2006-01-02")
	_, _, err := s.SaveAppointments([]domain.Candidate{
		{ID: "series1_20250616T100000", Subject: "X", StartTime: day + "T10:00:00Z", Source: "ics"},
		{ID: "series1_20250616T150000", Subject: "X", StartTime: day + "T15:00:00Z", Source: "ics"},
	}, dedup.Rules{})
	require.NoError(t, err)

	// Suppressing one occurrence leaves its siblings visible.
	require.NoError(t, s.AddIgnoredOccurrence("series1_20250616T100000", "X", day+"T10:00:00Z", "User ignored"))

	events, err := s.QueryEvents(0, 7, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "series1_20250616T150000", events[0].ID)
}

func TestSuppressionAddIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddIgnoredSeries("series1", "X", "first"))
	require.NoError(t, s.AddIgnoredSeries("series1", "X renamed", "second"))

	list, err := s.ListIgnoredSeries()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "series1", list[0].BaseID)
	require.Equal(t, "X renamed", list[0].Subject)
}

func TestListIgnoredSeriesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.AddIgnoredSeries("older", "A", ""))
	s.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, s.AddIgnoredSeries("newer", "B", ""))

	list, err := s.ListIgnoredSeries()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "newer", list[0].BaseID)
	require.Equal(t, "older", list[1].BaseID)
}

func TestListIgnoredOccurrences(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.AddIgnoredOccurrence("ev1", "A", "2025-06-16T10:00:00Z", "busy"))
	s.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, s.AddIgnoredOccurrence("ev2", "B", "2025-06-17T10:00:00Z", "busy"))

	list, err := s.ListIgnoredOccurrences()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "ev2", list[0].EventID)
	require.Equal(t, "2025-06-17T10:00:00Z", list[0].StartTime)

	require.NoError(t, s.RemoveIgnoredOccurrence("ev2"))
	set, err := s.IgnoredEventIDs()
	require.NoError(t, err)
	require.Contains(t, set, "ev1")
	require.NotContains(t, set, "ev2")
}

func TestSuppressionSetsAreIndependent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddIgnoredSeries("series1", "X", ""))
	require.NoError(t, s.AddIgnoredOccurrence("series2_20250616T100000", "Y", "", ""))

	baseIDs, err := s.IgnoredBaseIDs()
	require.NoError(t, err)
	eventIDs, err := s.IgnoredEventIDs()
	require.NoError(t, err)

	require.Contains(t, baseIDs, "series1")
	require.NotContains(t, baseIDs, "series2_20250616T100000")
	require.Contains(t, eventIDs, "series2_20250616T100000")
	require.NotContains(t, eventIDs, "series1")
}

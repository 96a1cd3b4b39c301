package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func insertRaw(t *testing.T, s *Store, id, subject, start, email string, source any, createdAt time.Time) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO appointments (id, subject, start_time, organizer_email, source, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, id, subject, start, email, source, createdAt.UTC().Format(time.RFC3339))
	require.NoError(t, err)
}

func TestCleanupDuplicatesKeepsOldest(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same event stored twice in the same source under different ids,
	// once with an offset spelling of the same instant.
	insertRaw(t, s, "keep", "Standup", "2025-02-01T10:00:00Z", "a@x.com", "cal1", base)
	insertRaw(t, s, "drop", "Standup", "2025-02-01T02:00:00-08:00", "a@x.com", "cal1", base.Add(time.Hour))
	// Same shape in another source is not a duplicate.
	insertRaw(t, s, "other-source", "Standup", "2025-02-01T10:00:00Z", "a@x.com", "cal2", base)
	// Different organizer is not a duplicate.
	insertRaw(t, s, "other-organizer", "Standup", "2025-02-01T10:00:00Z", "b@x.com", "cal1", base)

	removed, err := s.CleanupDuplicates()
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	var ids []string
	require.NoError(t, s.db.Select(&ids, "SELECT id FROM appointments ORDER BY id"))
	require.Equal(t, []string{"keep", "other-organizer", "other-source"}, ids)
}

func TestCleanupClaimsSourcelessRows(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	insertRaw(t, s, "legacy", "Lunch", "2025-02-01T12:00:00Z", "", nil, base)
	insertRaw(t, s, "modern", "Lunch", "2025-02-01T12:00:00Z", "", "ics", base.Add(time.Minute))

	removed, err := s.CleanupDuplicates()
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	// The NULL-source row was claimed by "ics" and, being older, kept.
	var source string
	require.NoError(t, s.db.Get(&source, "SELECT source FROM appointments WHERE id = ?", "legacy"))
	require.Equal(t, "ics", source)
	require.Equal(t, 1, countRows(t, s, "appointments"))
}

func TestCleanupSkipsUnparsableRows(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	insertRaw(t, s, "bad1", "Mystery", "not-a-time", "", "cal1", base)
	insertRaw(t, s, "bad2", "Mystery", "not-a-time", "", "cal1", base.Add(time.Minute))

	removed, err := s.CleanupDuplicates()
	require.NoError(t, err)
	require.Equal(t, 0, removed)
	require.Equal(t, 2, countRows(t, s, "appointments"))
}

func TestCleanupEmptyStore(t *testing.T) {
	s := newTestStore(t)
	removed, err := s.CleanupDuplicates()
	require.NoError(t, err)
	require.Equal(t, 0, removed)
}

package store

import (
	"fmt"

	"calstore/internal/domain"
	"calstore/internal/timeutil"
)

// The two suppression lists are independent key-value sets written by
// explicit user action and consulted on every query. Adds are
// idempotent upserts; listing is most-recently-ignored first.

// AddIgnoredSeries suppresses an entire recurring series by base id.
func (s *Store) AddIgnoredSeries(baseID, subject, reason string) error {
	now := timeutil.Format(s.now())
	_, err := s.db.Exec(`INSERT OR REPLACE INTO ignored_base_ids (base_id, subject, ignored_at, reason)
VALUES (?, ?, ?, ?)`, baseID, subject, now, reason)
	if err != nil {
		return fmt.Errorf("add ignored series: %w", err)
	}
	return nil
}

// RemoveIgnoredSeries lifts a series suppression.
func (s *Store) RemoveIgnoredSeries(baseID string) error {
	if _, err := s.db.Exec("DELETE FROM ignored_base_ids WHERE base_id = ?", baseID); err != nil {
		return fmt.Errorf("remove ignored series: %w", err)
	}
	return nil
}

// ListIgnoredSeries returns all series suppressions, newest first.
func (s *Store) ListIgnoredSeries() ([]domain.IgnoredSeries, error) {
	var out []domain.IgnoredSeries
	err := s.db.Select(&out, `SELECT base_id, COALESCE(subject, '') AS subject, COALESCE(ignored_at, '') AS ignored_at
FROM ignored_base_ids ORDER BY ignored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list ignored series: %w", err)
	}
	return out, nil
}

// IgnoredBaseIDs returns the suppressed base ids as a membership set
// for the query path.
func (s *Store) IgnoredBaseIDs() (map[string]struct{}, error) {
	var ids []string
	if err := s.db.Select(&ids, "SELECT base_id FROM ignored_base_ids"); err != nil {
		return nil, fmt.Errorf("ignored base ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// AddIgnoredOccurrence suppresses one specific occurrence by event id.
func (s *Store) AddIgnoredOccurrence(eventID, subject, startTime, reason string) error {
	now := timeutil.Format(s.now())
	_, err := s.db.Exec(`INSERT OR REPLACE INTO ignored_event_ids (event_id, subject, start_time, ignored_at, reason)
VALUES (?, ?, ?, ?, ?)`, eventID, subject, startTime, now, reason)
	if err != nil {
		return fmt.Errorf("add ignored occurrence: %w", err)
	}
	return nil
}

// RemoveIgnoredOccurrence lifts an occurrence suppression.
func (s *Store) RemoveIgnoredOccurrence(eventID string) error {
	if _, err := s.db.Exec("DELETE FROM ignored_event_ids WHERE event_id = ?", eventID); err != nil {
		return fmt.Errorf("remove ignored occurrence: %w", err)
	}
	return nil
}

// ListIgnoredOccurrences returns all occurrence suppressions, newest
// first.
func (s *Store) ListIgnoredOccurrences() ([]domain.IgnoredOccurrence, error) {
	var out []domain.IgnoredOccurrence
	err := s.db.Select(&out, `SELECT event_id, COALESCE(subject, '') AS subject,
COALESCE(start_time, '') AS start_time, COALESCE(ignored_at, '') AS ignored_at
FROM ignored_event_ids ORDER BY ignored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list ignored occurrences: %w", err)
	}
	return out, nil
}

// IgnoredEventIDs returns the suppressed occurrence ids as a
// membership set for the query path.
func (s *Store) IgnoredEventIDs() (map[string]struct{}, error) {
	var ids []string
	if err := s.db.Select(&ids, "SELECT event_id FROM ignored_event_ids"); err != nil {
		return nil, fmt.Errorf("ignored event ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"calstore/internal/timeutil"
)

// CleanupDuplicates removes appointments that duplicate an earlier
// record within the same source, keyed on subject, UTC-normalized
// start time, and organizer email. The oldest record by created_at
// survives. Rows with no source are first claimed by the "ics" source,
// matching how pre-source records were written. Returns the number of
// rows removed.
func (s *Store) CleanupDuplicates() (int, error) {
	var sources []string
	if err := s.db.Select(&sources, "SELECT DISTINCT source FROM appointments WHERE source IS NOT NULL"); err != nil {
		return 0, fmt.Errorf("list sources: %w", err)
	}
	if len(sources) > 0 {
		if _, err := s.db.Exec("UPDATE appointments SET source = ? WHERE source IS NULL", "ics"); err != nil {
			return 0, fmt.Errorf("claim sourceless rows: %w", err)
		}
		sources = append(sources, "ics")
	}

	removed := 0
	for _, source := range sources {
		n, err := s.cleanupSource(source)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (s *Store) cleanupSource(source string) (int, error) {
	type eventRow struct {
		ID             string         `db:"id"`
		Subject        sql.NullString `db:"subject"`
		StartTime      sql.NullString `db:"start_time"`
		OrganizerEmail sql.NullString `db:"organizer_email"`
	}
	var rows []eventRow
	err := s.db.Select(&rows, `SELECT id, subject, start_time, organizer_email
FROM appointments WHERE source = ? ORDER BY created_at ASC`, source)
	if err != nil {
		return 0, fmt.Errorf("list events for %s: %w", source, err)
	}

	type dupKey struct {
		subject string
		start   string
		email   string
	}
	seen := make(map[dupKey]string)
	removed := 0

	for _, row := range rows {
		start, ok := timeutil.Parse(row.StartTime.String)
		if !ok {
			continue
		}
		key := dupKey{
			subject: row.Subject.String,
			start:   timeutil.Format(start),
			email:   row.OrganizerEmail.String,
		}
		keeper, dup := seen[key]
		if !dup {
			seen[key] = row.ID
			continue
		}
		if _, err := s.db.Exec("DELETE FROM appointments WHERE id = ?", row.ID); err != nil {
			return removed, fmt.Errorf("delete duplicate %s: %w", row.ID, err)
		}
		s.logger.Info("removed duplicate",
			zap.String("subject", row.Subject.String),
			zap.String("start_time", row.StartTime.String),
			zap.String("kept", keeper),
			zap.String("removed", row.ID))
		removed++
	}
	return removed, nil
}

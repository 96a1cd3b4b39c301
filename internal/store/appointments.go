package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"calstore/internal/dedup"
	"calstore/internal/domain"
	"calstore/internal/timeutil"
)

// duplicateToleranceSeconds is the maximum start-time distance, after
// UTC normalization, at which two records are considered the same
// real-world event. The SQL pre-filter below uses the same window so
// it can never exclude a row the fine-grained check would accept.
const duplicateToleranceSeconds = 60

// appointmentRow is the full persisted shape of an appointment.
type appointmentRow struct {
	ID             string `db:"id"`
	Subject        string `db:"subject"`
	StartTime      string `db:"start_time"`
	EndTime        string `db:"end_time"`
	Location       string `db:"location"`
	OrganizerEmail string `db:"organizer_email"`
	OrganizerName  string `db:"organizer_name"`
	Attendees      string `db:"attendees"`
	BodyPreview    string `db:"body_preview"`
	IsAllDay       int    `db:"is_all_day"`
	Source         string `db:"source"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func rowFromCandidate(id string, c domain.Candidate, createdAt, updatedAt string) appointmentRow {
	attendees := c.Attendees
	if attendees == "" {
		attendees = "[]"
	}
	return appointmentRow{
		ID:             id,
		Subject:        c.Subject,
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		Location:       c.Location,
		OrganizerEmail: c.OrganizerEmail,
		OrganizerName:  c.OrganizerName,
		Attendees:      attendees,
		BodyPreview:    c.BodyPreview,
		IsAllDay:       c.IsAllDay,
		Source:         c.Source,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

// FindDuplicate looks for an existing record that is the same
// real-world event as the given candidate: identical subject and
// source, identical organizer email ("" equals ""), and a start time
// strictly under a minute away once both are normalized to UTC.
// excludeID is never returned, so a record can be re-checked against
// the rest of the table during an update.
//
// Returns the first match encountered; the one-minute window makes
// multiple true matches practically impossible, so no tie-break is
// attempted. Rows whose stored start time does not parse are skipped.
func (s *Store) FindDuplicate(subject, startTime, organizerEmail, source, excludeID string) (string, bool) {
	start, ok := timeutil.Parse(startTime)
	if !ok {
		return "", false
	}
	startUTC := timeutil.ToUTC(start)
	windowStart := timeutil.Format(startUTC.Add(-duplicateToleranceSeconds * time.Second))
	windowEnd := timeutil.Format(startUTC.Add(duplicateToleranceSeconds * time.Second))

	type candidateRow struct {
		ID             string         `db:"id"`
		StartTime      sql.NullString `db:"start_time"`
		OrganizerEmail sql.NullString `db:"organizer_email"`
	}
	var rows []candidateRow
	err := s.db.Select(&rows, `SELECT id, start_time, organizer_email FROM appointments
WHERE subject = ? AND source = ?
AND start_time >= ? AND start_time <= ?
AND id != ?`,
		subject, source, windowStart, windowEnd, excludeID)
	if err != nil {
		s.logger.Warn("find duplicate", zap.Error(err))
		return "", false
	}

	for _, row := range rows {
		rowStart, ok := timeutil.Parse(row.StartTime.String)
		if !ok {
			continue
		}
		if !timeutil.WithinTolerance(startUTC, rowStart, duplicateToleranceSeconds) {
			continue
		}
		if organizerEmail == row.OrganizerEmail.String {
			return row.ID, true
		}
	}
	return "", false
}

// SaveAppointments writes a batch of candidate events, deduplicating
// against the existing store, and returns how many were inserted and
// updated. Candidates are processed independently and in order; a
// failure on one candidate is logged, folded into the returned error,
// and never aborts the rest of the batch.
func (s *Store) SaveAppointments(candidates []domain.Candidate, rules dedup.Rules) (int, int, error) {
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	inserted, updated := 0, 0
	now := timeutil.Format(s.now())
	var errs []error

	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		ins, upd, err := s.saveOne(c, rules, now)
		if err != nil {
			s.logger.Warn("save appointment", zap.String("id", c.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("save %s: %w", c.ID, err))
			continue
		}
		inserted += ins
		updated += upd
	}

	return inserted, updated, errors.Join(errs...)
}

// saveOne decides whether one candidate is new, an update to the
// record with the same id, or a cross-source duplicate of a record
// with a different id, and performs the corresponding write.
func (s *Store) saveOne(c domain.Candidate, rules dedup.Rules, now string) (inserted, updated int, err error) {
	var existingSource sql.NullString
	err = s.db.Get(&existingSource, "SELECT source FROM appointments WHERE id = ?", c.ID)
	switch {
	case err == nil:
		// Exact id match: precedence decides whether the new data
		// replaces the stored record.
		if rules.Resolve(existingSource.String) != dedup.Overwrite {
			return 0, 0, nil
		}
		if err := s.updateAppointment(c.ID, c, now); err != nil {
			return 0, 0, err
		}
		return 0, 1, nil
	case errors.Is(err, sql.ErrNoRows):
		// Unknown id: check for the same event under another id.
	default:
		return 0, 0, fmt.Errorf("lookup appointment: %w", err)
	}

	dupID, found := s.FindDuplicate(c.Subject, c.StartTime, c.OrganizerEmail, c.Source, c.ID)
	if found {
		var dupSource sql.NullString
		if err := s.db.Get(&dupSource, "SELECT source FROM appointments WHERE id = ?", dupID); err != nil {
			return 0, 0, fmt.Errorf("lookup duplicate source: %w", err)
		}
		if rules.Resolve(dupSource.String) != dedup.Overwrite {
			return 0, 0, nil
		}
		// The duplicate's id survives; the candidate's id is discarded.
		if err := s.updateAppointment(dupID, c, now); err != nil {
			return 0, 0, err
		}
		return 0, 1, nil
	}

	row := rowFromCandidate(c.ID, c, now, now)
	_, err = s.db.NamedExec(`INSERT INTO appointments
(id, subject, start_time, end_time, location, organizer_email, organizer_name, attendees, body_preview, is_all_day, source, created_at, updated_at)
VALUES (:id, :subject, :start_time, :end_time, :location, :organizer_email, :organizer_name, :attendees, :body_preview, :is_all_day, :source, :created_at, :updated_at)`, row)
	if err != nil {
		return 0, 0, fmt.Errorf("insert appointment: %w", err)
	}
	return 1, 0, nil
}

func (s *Store) updateAppointment(id string, c domain.Candidate, now string) error {
	row := rowFromCandidate(id, c, "", now)
	_, err := s.db.NamedExec(`UPDATE appointments
SET subject = :subject, start_time = :start_time, end_time = :end_time, location = :location,
    organizer_email = :organizer_email, organizer_name = :organizer_name, attendees = :attendees,
    body_preview = :body_preview, is_all_day = :is_all_day, source = :source, updated_at = :updated_at
WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// QueryEvents returns events whose nominal start date falls in
// [today-daysBack, today+daysAhead], optionally restricted to one
// source, ordered by start time and with suppressed series and
// occurrences filtered out.
//
// The window compares the YYYY-MM-DD prefix of the stored start time
// rather than a full timestamp: stored strings carry mixed offsets,
// and lexicographic comparison across offsets is not monotonic with
// actual time. Filtering by nominal start date sidesteps that.
func (s *Store) QueryEvents(daysBack, daysAhead int, source string) ([]domain.Appointment, error) {
	now := s.now().UTC()
	startDate := now.AddDate(0, 0, -daysBack).Format("2006-01-02")
	endDate := now.AddDate(0, 0, daysAhead+1).Format("2006-01-02")

	ignoredEvents, err := s.IgnoredEventIDs()
	if err != nil {
		return nil, err
	}
	ignoredSeries, err := s.IgnoredBaseIDs()
	if err != nil {
		return nil, err
	}

	query := `SELECT id,
COALESCE(subject, '') AS subject,
COALESCE(start_time, '') AS start_time,
COALESCE(end_time, '') AS end_time,
COALESCE(location, '') AS location,
COALESCE(organizer_email, '') AS organizer_email,
COALESCE(organizer_name, '') AS organizer_name,
COALESCE(attendees, '[]') AS attendees,
COALESCE(body_preview, '') AS body_preview,
COALESCE(is_all_day, 0) AS is_all_day,
COALESCE(source, '') AS source
FROM appointments
WHERE substr(start_time, 1, 10) >= ? AND substr(start_time, 1, 10) < ?`
	args := []any{startDate, endDate}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY start_time ASC"

	var rows []domain.Appointment
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]domain.Appointment, 0, len(rows))
	for _, ev := range rows {
		if _, ok := ignoredEvents[ev.ID]; ok {
			continue
		}
		if _, ok := ignoredSeries[domain.BaseID(ev.ID)]; ok {
			continue
		}
		if ev.Attendees == "" {
			ev.Attendees = "[]"
		}
		events = append(events, ev)
	}
	return events, nil
}

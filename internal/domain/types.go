package domain

import "strings"

// Appointment is the canonical stored calendar event record. Start and
// end times are kept as the ISO-8601 strings the source delivered;
// normalization to UTC happens only when times are compared.
type Appointment struct {
	ID             string `db:"id" json:"id"`
	Subject        string `db:"subject" json:"subject"`
	StartTime      string `db:"start_time" json:"start_time"`
	EndTime        string `db:"end_time" json:"end_time"`
	Location       string `db:"location" json:"location"`
	OrganizerEmail string `db:"organizer_email" json:"organizer_email"`
	OrganizerName  string `db:"organizer_name" json:"organizer_name"`
	Attendees      string `db:"attendees" json:"attendees"`
	BodyPreview    string `db:"body_preview" json:"body_preview"`
	IsAllDay       int    `db:"is_all_day" json:"is_all_day"`
	Source         string `db:"source" json:"source"`
	CreatedAt      string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt      string `db:"updated_at" json:"updated_at,omitempty"`
}

// Candidate is one incoming event from an upstream sync adapter.
// Every field except ID is optional; zero values take the insert
// defaults ("" for text fields, "[]" for attendees, 0 for is_all_day).
// A candidate without an ID is dropped by the merge engine.
type Candidate struct {
	ID             string `json:"id"`
	Subject        string `json:"subject"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Location       string `json:"location"`
	OrganizerEmail string `json:"organizer_email"`
	OrganizerName  string `json:"organizer_name"`
	Attendees      string `json:"attendees"`
	BodyPreview    string `json:"body_preview"`
	IsAllDay       int    `json:"is_all_day"`
	Source         string `json:"source"`
}

// IgnoredSeries is a user-declared suppression of an entire recurring
// series, keyed by its base id.
type IgnoredSeries struct {
	BaseID    string `db:"base_id" json:"base_id"`
	Subject   string `db:"subject" json:"subject"`
	IgnoredAt string `db:"ignored_at" json:"ignored_at"`
}

// IgnoredOccurrence is a user-declared suppression of one specific
// occurrence, keyed by the occurrence's full event id.
type IgnoredOccurrence struct {
	EventID   string `db:"event_id" json:"event_id"`
	Subject   string `db:"subject" json:"subject"`
	StartTime string `db:"start_time" json:"start_time"`
	IgnoredAt string `db:"ignored_at" json:"ignored_at"`
}

// BaseID derives the recurring-series base id from an event id.
// Occurrence ids carry a trailing "_YYYYMMDDTHHMMSS" suffix (8 digits,
// 'T', 6 digits); when the suffix has exactly that shape it is
// stripped, otherwise the event id already is the base id.
func BaseID(eventID string) string {
	i := strings.LastIndex(eventID, "_")
	if i < 0 {
		return eventID
	}
	suffix := eventID[i+1:]
	if len(suffix) != 15 || suffix[8] != 'T' {
		return eventID
	}
	if !allDigits(suffix[:8]) || !allDigits(suffix[9:]) {
		return eventID
	}
	return eventID[:i]
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

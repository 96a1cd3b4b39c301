package ics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"calstore/internal/domain"
	"calstore/internal/timeutil"
)

// maxOccurrencesPerEvent caps RRULE expansion so a malformed rule
// cannot flood the store.
const maxOccurrencesPerEvent = 1000

// occurrenceSuffixLayout is the timestamp suffix appended to a series
// uid to form an occurrence id. It must keep the exact
// 8-digits/T/6-digits shape that base-id derivation strips.
const occurrenceSuffixLayout = "20060102T150405"

// Horizon bounds recurrence expansion.
type Horizon struct {
	Start time.Time
	End   time.Time
}

// Parse converts an ICS payload into candidate events for the given
// source. Non-recurring VEVENTs map to one candidate keyed by their
// UID; recurring ones are expanded within the horizon into occurrences
// keyed "<uid>_<YYYYMMDDTHHMMSS>". A VEVENT that cannot be parsed is
// logged and skipped, never failing the feed.
func Parse(source string, body []byte, h Horizon, logger *zap.Logger) ([]domain.Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var out []domain.Candidate
	for _, ve := range cal.Events() {
		cands, err := parseEvent(source, ve, h)
		if err != nil {
			logger.Warn("skip vevent", zap.String("source", source), zap.Error(err))
			continue
		}
		out = append(out, cands...)
	}
	return out, nil
}

func parseEvent(source string, ve *ical.VEvent, h Horizon) ([]domain.Candidate, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		// Some feeds omit UIDs entirely; without one the event can
		// still be stored, it just loses cross-sync identity.
		uid = uuid.NewString()
	}

	allDay := isAllDay(ve)
	start, end, err := eventTimes(ve, allDay)
	if err != nil {
		return nil, err
	}

	base := domain.Candidate{
		ID:          uid,
		Subject:     propValue(ve, ical.ComponentPropertySummary),
		StartTime:   timeutil.Format(start),
		EndTime:     timeutil.Format(end),
		Location:    propValue(ve, ical.ComponentPropertyLocation),
		BodyPreview: preview(propValue(ve, ical.ComponentPropertyDescription)),
		Source:      source,
	}
	if allDay {
		base.IsAllDay = 1
	}
	base.OrganizerEmail, base.OrganizerName = organizer(ve)
	base.Attendees = attendees(ve)

	rruleValue := propValue(ve, ical.ComponentPropertyRrule)
	if rruleValue == "" {
		return []domain.Candidate{base}, nil
	}
	return expandRecurring(base, rruleValue, ve, start, end, h)
}

// expandRecurring produces one candidate per occurrence of a
// recurring event within the horizon, honoring EXDATE exclusions.
func expandRecurring(base domain.Candidate, rruleValue string, ve *ical.VEvent, start, end time.Time, h Horizon) ([]domain.Candidate, error) {
	opt, err := rrule.StrToROption(rruleValue)
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", rruleValue, err)
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule %q: %w", rruleValue, err)
	}

	excluded := exdates(ve, start.Location())
	duration := end.Sub(start)

	var out []domain.Candidate
	for _, occ := range rule.Between(h.Start, h.End, true) {
		if len(out) >= maxOccurrencesPerEvent {
			break
		}
		suffix := occ.UTC().Format(occurrenceSuffixLayout)
		if _, skip := excluded[suffix]; skip {
			continue
		}
		c := base
		c.ID = base.ID + "_" + suffix
		c.StartTime = timeutil.Format(occ)
		c.EndTime = timeutil.Format(occ.Add(duration))
		out = append(out, c)
	}
	return out, nil
}

func eventTimes(ve *ical.VEvent, allDay bool) (time.Time, time.Time, error) {
	var (
		start, end time.Time
		err        error
	)
	if allDay {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start time: %w", err)
	}

	if allDay {
		end, err = ve.GetAllDayEndAt()
	} else {
		end, err = ve.GetEndAt()
	}
	if err != nil {
		// DTEND is optional; fall back to a nominal duration.
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(time.Hour)
		}
	}

	if allDay {
		// Date-only values are anchored to the calendar date, not an
		// instant; pin them to UTC midnight so the stored string does
		// not depend on the machine's local zone.
		start = dateUTC(start)
		end = dateUTC(end)
	}
	return start, end, nil
}

func dateUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isAllDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	for _, v := range prop.ICalParameters["VALUE"] {
		if v == "DATE" {
			return true
		}
	}
	return false
}

// exdates collects EXDATE values keyed by their UTC occurrence suffix.
// Values without a zone are read in the event's own location.
func exdates(ve *ical.VEvent, loc *time.Location) map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, value := range strings.Split(p.Value, ",") {
			t, ok := parseICalTime(strings.TrimSpace(value), loc)
			if !ok {
				continue
			}
			out[t.UTC().Format(occurrenceSuffixLayout)] = struct{}{}
		}
	}
	return out
}

func parseICalTime(value string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("20060102T150405", value, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("20060102", value, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func organizer(ve *ical.VEvent) (email, name string) {
	prop := ve.GetProperty(ical.ComponentPropertyOrganizer)
	if prop == nil {
		return "", ""
	}
	email = stripMailto(prop.Value)
	if cn := prop.ICalParameters["CN"]; len(cn) > 0 {
		name = cn[0]
	}
	return email, name
}

func attendees(ve *ical.VEvent) string {
	var emails []string
	for _, a := range ve.Attendees() {
		if e := a.Email(); e != "" {
			emails = append(emails, e)
		}
	}
	if len(emails) == 0 {
		return ""
	}
	data, err := json.Marshal(emails)
	if err != nil {
		return ""
	}
	return string(data)
}

func stripMailto(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	prop := ve.GetProperty(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}

func preview(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max]
}

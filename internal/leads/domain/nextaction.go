package domain

import (
	"errors"
	"regexp"
	"strings"
)

const maxNextActionTextLen = 500

var (
	ErrInvalidActionDate = errors.New("invalid next action date, use YYYY-MM-DD or DD/MM/YYYY")
	ErrInvalidActionTime = errors.New("invalid next action time, use HH:MM")
	ErrTimeWithoutDate   = errors.New("next action time requires a date")
	ErrEmptyNextAction   = errors.New("next action needs text or a date")
)

// NextAction is a scheduled follow-up attached to a lead.
type NextAction struct {
	Text string `json:"text"`
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM:SS
}

// IsZero reports whether nothing is scheduled.
func (n NextAction) IsZero() bool {
	return n.Text == "" && n.Date == "" && n.Time == ""
}

var (
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoSlashRe    = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})$`)
	brDateRe      = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	shortTimeRe   = regexp.MustCompile(`^\d{2}:\d{2}$`)
	secondsTimeRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// NormalizeActionDate accepts YYYY-MM-DD, YYYY/MM/DD or DD/MM/YYYY and
// returns the ISO form. Empty input is valid and returns "".
func NormalizeActionDate(value string) (string, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", nil
	}
	if isoDateRe.MatchString(raw) {
		return raw, nil
	}
	if m := isoSlashRe.FindStringSubmatch(raw); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3], nil
	}
	if m := brDateRe.FindStringSubmatch(raw); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1], nil
	}
	return "", ErrInvalidActionDate
}

// NormalizeActionTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
// Empty input is valid and returns "".
func NormalizeActionTime(value string) (string, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", nil
	}
	if shortTimeRe.MatchString(raw) {
		return raw + ":00", nil
	}
	if secondsTimeRe.MatchString(raw) {
		return raw, nil
	}
	return "", ErrInvalidActionTime
}

// NewNextAction validates and normalizes a follow-up. A time without a
// date is rejected, and at least text or a date must be present.
func NewNextAction(text, date, timeOfDay string) (NextAction, error) {
	text = strings.TrimSpace(text)
	if len(text) > maxNextActionTextLen {
		text = text[:maxNextActionTextLen]
	}

	normDate, err := NormalizeActionDate(date)
	if err != nil {
		return NextAction{}, err
	}
	normTime, err := NormalizeActionTime(timeOfDay)
	if err != nil {
		return NextAction{}, err
	}
	if normTime != "" && normDate == "" {
		return NextAction{}, ErrTimeWithoutDate
	}
	if text == "" && normDate == "" {
		return NextAction{}, ErrEmptyNextAction
	}
	return NextAction{Text: text, Date: normDate, Time: normTime}, nil
}

const legacyNextActionPrefix = "NEXT_ACTION|"

// ParseLegacyNote decodes the legacy note encoding
// "NEXT_ACTION|YYYY-MM-DD|HH:MM|free text" that older frontends wrote
// into lead notes. Returns false for anything else.
func ParseLegacyNote(note string) (NextAction, bool) {
	note = strings.TrimSpace(note)
	if !strings.HasPrefix(note, legacyNextActionPrefix) {
		return NextAction{}, false
	}
	parts := strings.Split(note, "|")
	action := NextAction{}
	if len(parts) > 1 {
		action.Date = parts[1]
	}
	if len(parts) > 2 {
		action.Time = parts[2]
	}
	if len(parts) > 3 {
		action.Text = strings.TrimSpace(strings.Join(parts[3:], "|"))
	}
	return action, true
}

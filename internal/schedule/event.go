// Package schedule contains the canonical timetable event model, the
// raw-item normalizer and the snapshot diff engine.
package schedule

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RawItem is one row as produced by the external scraper. Optional fields
// are empty strings when absent; anything that fails validation in
// Normalize is rejected with a MalformedItemError.
type RawItem struct {
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Title     string `json:"title"`
	Room      string `json:"room,omitempty"`
	Teacher   string `json:"teacher,omitempty"`
	GroupInfo string `json:"group_info,omitempty"`
	Pair      int    `json:"pair,omitempty"`
	PairLabel string `json:"pair_label,omitempty"`
	AddedAt   string `json:"added_at,omitempty"`
	Raw       string `json:"raw,omitempty"`
}

// Event is one scheduled occurrence in canonical form. Date is an ISO
// calendar date, Start/End are local wall-clock times ("15:04") in the
// configured timezone.
type Event struct {
	GroupID   string `json:"group_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Title     string `json:"title"`
	Kind      string `json:"kind,omitempty"`
	Room      string `json:"room,omitempty"`
	Teacher   string `json:"teacher,omitempty"`
	GroupInfo string `json:"group_info,omitempty"`
	PairLabel string `json:"pair_label,omitempty"`
	AddedAt   string `json:"added_at,omitempty"`
	Raw       string `json:"raw,omitempty"`
}

// Key returns the deterministic identity key for the event. It covers every
// user-visible field; provenance fields (GroupInfo, PairLabel, AddedAt, Raw)
// are excluded so their presence alone never changes identity. The key is
// used both as the calendar UID and as the diff comparison key.
func (e Event) Key() string {
	payload := strings.Join([]string{
		e.GroupID, e.Date, e.Start, e.End, e.Title, e.Kind, e.Room, e.Teacher,
	}, "|")
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// StartTime returns the event start as a time.Time in the given location.
func (e Event) StartTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Start, loc)
}

// EndTime returns the event end as a time.Time in the given location.
func (e Event) EndTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.End, loc)
}

// Snapshot is the complete set of events for one group at one observation
// time. Snapshots are immutable; a new cycle always produces a new one.
type Snapshot struct {
	GroupID    string    `json:"group_id"`
	CapturedAt time.Time `json:"captured_at"`
	Events     []Event   `json:"events"`
}

// MalformedItemError reports a raw item that cannot be normalized.
type MalformedItemError struct {
	Field  string
	Reason string
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("malformed item: field %q: %s", e.Field, e.Reason)
}

var leadingDigitsRE = regexp.MustCompile(`^\d+`)
var nonAlnumRE = regexp.MustCompile(`[^0-9A-Za-z]+`)

// GroupIDFromName derives a stable group identifier from a human-entered
// group label. A leading digit run wins ("104б__Философия" → "104");
// otherwise the label collapses to a lowercase alphanumeric slug, with
// "grp" as the last resort.
func GroupIDFromName(name string) string {
	s := strings.TrimSpace(name)
	if m := leadingDigitsRE.FindString(s); m != "" {
		return m
	}
	slug := strings.ToLower(nonAlnumRE.ReplaceAllString(s, ""))
	if slug == "" {
		return "grp"
	}
	return slug
}

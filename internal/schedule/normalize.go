package schedule

import (
	"regexp"
	"strings"
	"time"
)

var (
	kindMarkerRE = regexp.MustCompile(`\[(.*?)\]`)
	spacesRE     = regexp.MustCompile(`\s+`)
)

// Normalize converts a raw scraped item into a canonical Event for the
// given group. It is a pure function: the same raw item always yields the
// same Event (and therefore the same identity key). Missing optional
// fields are normalized to empty strings so that absence vs. empty makes
// no difference to identity.
func Normalize(raw RawItem, groupID string) (Event, error) {
	date, err := parseDate(raw.Date)
	if err != nil {
		return Event{}, &MalformedItemError{Field: "date", Reason: err.Error()}
	}
	start, err := parseClock(raw.Start)
	if err != nil {
		return Event{}, &MalformedItemError{Field: "start", Reason: err.Error()}
	}
	end, err := parseClock(raw.End)
	if err != nil {
		return Event{}, &MalformedItemError{Field: "end", Reason: err.Error()}
	}

	title, kind := splitTitleKind(raw.Title)
	if title == "" {
		return Event{}, &MalformedItemError{Field: "title", Reason: "empty"}
	}

	pairLabel := strings.TrimSpace(raw.PairLabel)

	return Event{
		GroupID:   groupID,
		Date:      date,
		Start:     start,
		End:       end,
		Title:     title,
		Kind:      kind,
		Room:      collapseSpaces(raw.Room),
		Teacher:   collapseSpaces(raw.Teacher),
		GroupInfo: collapseSpaces(raw.GroupInfo),
		PairLabel: pairLabel,
		AddedAt:   strings.TrimSpace(raw.AddedAt),
		Raw:       raw.Raw,
	}, nil
}

// splitTitleKind separates a bracketed kind marker from the title:
// "История России [Сем]" → ("История России", "Сем").
func splitTitleKind(title string) (string, string) {
	kind := ""
	if m := kindMarkerRE.FindStringSubmatch(title); m != nil {
		kind = strings.TrimSpace(m[1])
	}
	core := kindMarkerRE.ReplaceAllString(title, " ")
	return collapseSpaces(core), kind
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacesRE.ReplaceAllString(s, " "))
}

// parseDate accepts ISO dates and the DD.MM.YYYY form the source site
// uses, returning the canonical ISO form.
func parseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	t, err := time.Parse("02.01.2006", s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// parseClock accepts "15:04" and single-digit hours like "9:00",
// returning the canonical zero-padded form.
func parseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("3:04", s)
		if err != nil {
			return "", err
		}
	}
	return t.Format("15:04"), nil
}

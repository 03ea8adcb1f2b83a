package schedule

import (
	"regexp"
	"strings"
)

// languageTitleRE matches foreign-language lesson titles on the source
// site, e.g. "Английский язык". RE2's \b is ASCII-only and never fires
// after a Cyrillic letter, so the word end is spelled out as whitespace
// or end-of-string. Already-merged titles ("Английский г264; Немецкий
// г236") do not match, which makes the merge idempotent.
var languageTitleRE = regexp.MustCompile(`^([\p{Lu}][\p{Ll}]+)\s+язык(?:\s|$)`)

// MergeLanguageTracks collapses parallel language-track lessons occupying
// the same date and timeslot into a single event whose title lists each
// language with its rooms ("Английский г264, г267; Немецкий г236").
// Languages and rooms keep the insertion order of their first occurrence,
// so the merge is deterministic for a fixed input order. Non-language
// events pass through untouched, as do already-merged events.
func MergeLanguageTracks(events []Event) []Event {
	type slot struct {
		date, start, end string
	}
	type langGroup struct {
		langs []string            // first-occurrence order
		rooms map[string][]string // language -> rooms, first-occurrence order
		orig  []Event
	}

	out := make([]Event, 0, len(events))
	groups := make(map[slot]*langGroup)
	order := make([]slot, 0)

	for _, ev := range events {
		m := languageTitleRE.FindStringSubmatch(ev.Title)
		if m == nil {
			out = append(out, ev)
			continue
		}
		lang := m[1]
		key := slot{ev.Date, ev.Start, ev.End}
		g, ok := groups[key]
		if !ok {
			g = &langGroup{rooms: make(map[string][]string)}
			groups[key] = g
			order = append(order, key)
		}
		if _, seen := g.rooms[lang]; !seen {
			g.langs = append(g.langs, lang)
			g.rooms[lang] = nil
		}
		if room := strings.TrimSpace(ev.Room); room != "" && !contains(g.rooms[lang], room) {
			g.rooms[lang] = append(g.rooms[lang], room)
		}
		g.orig = append(g.orig, ev)
	}

	for _, key := range order {
		g := groups[key]
		parts := make([]string, 0, len(g.langs))
		var allRooms []string
		for _, lang := range g.langs {
			rooms := g.rooms[lang]
			if len(rooms) == 0 {
				parts = append(parts, lang)
				continue
			}
			parts = append(parts, lang+" "+strings.Join(rooms, ", "))
			for _, r := range rooms {
				if !contains(allRooms, r) {
					allRooms = append(allRooms, r)
				}
			}
		}

		merged := Event{
			GroupID: g.orig[0].GroupID,
			Date:    key.date,
			Start:   key.start,
			End:     key.end,
			Title:   strings.Join(parts, "; "),
			Room:    strings.Join(allRooms, ", "),
		}
		for _, o := range g.orig {
			if merged.PairLabel == "" && o.PairLabel != "" {
				merged.PairLabel = o.PairLabel
			}
			if merged.AddedAt == "" && o.AddedAt != "" {
				merged.AddedAt = o.AddedAt
			}
		}
		out = append(out, merged)
	}

	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/msu-timetable/backend/internal/schedule"
)

// maxDiffLines caps how many per-event lines a broadcast message carries
// before collapsing the remainder into a count.
const maxDiffLines = 12

// changePair is a removed+added pair sharing the same date and timeslot,
// shown as a single "changed" line. The pairing is purely cosmetic; the
// change set itself only knows additions and removals.
type changePair struct {
	old, new schedule.Event
}

// FormatChangeSet renders a human-readable diff summary as Added,
// Removed and Changed blocks with date-ordered lines. When futureOnly is
// set, only future-partitioned changes appear.
func FormatChangeSet(cs *schedule.ChangeSet, futureOnly bool) string {
	added := cs.Added.All()
	removed := cs.Removed.All()
	if futureOnly {
		added = cs.Added.Future
		removed = cs.Removed.Future
	}

	pairs, added, removed := pairChanges(added, removed)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: schedule update (+%d, −%d, ±%d)",
		cs.GroupID, len(added), len(removed), len(pairs))

	writeBlock(&b, "Added:", eventLines("+ ", added))
	writeBlock(&b, "Removed:", eventLines("− ", removed))

	var changed []string
	for _, p := range pairs {
		changed = append(changed, "✎ "+eventLine(p.old)+" → "+eventLine(p.new))
	}
	writeBlock(&b, "Changed:", changed)

	return b.String()
}

// pairChanges matches removals against additions that share a date and
// timeslot so a content edit reads as one changed line instead of two.
func pairChanges(added, removed []schedule.Event) ([]changePair, []schedule.Event, []schedule.Event) {
	slot := func(ev schedule.Event) string {
		return ev.Date + "|" + ev.Start + "|" + ev.End
	}

	used := make([]bool, len(added))
	var pairs []changePair
	var restRemoved []schedule.Event
	for _, old := range removed {
		matched := -1
		for i, ev := range added {
			if !used[i] && slot(ev) == slot(old) {
				matched = i
				break
			}
		}
		if matched < 0 {
			restRemoved = append(restRemoved, old)
			continue
		}
		used[matched] = true
		pairs = append(pairs, changePair{old: old, new: added[matched]})
	}

	var restAdded []schedule.Event
	for i, ev := range added {
		if !used[i] {
			restAdded = append(restAdded, ev)
		}
	}

	return pairs, restAdded, restRemoved
}

func writeBlock(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	shown := lines
	if len(shown) > maxDiffLines {
		shown = shown[:maxDiffLines]
	}
	for _, l := range shown {
		b.WriteString("\n")
		b.WriteString(l)
	}
	if len(lines) > maxDiffLines {
		fmt.Fprintf(b, "\n… and %d more", len(lines)-maxDiffLines)
	}
}

func eventLines(prefix string, events []schedule.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, prefix+eventLine(ev))
	}
	return out
}

func eventLine(ev schedule.Event) string {
	parts := []string{ev.Date + " " + ev.Start + "–" + ev.End, ev.Title}
	if ev.Kind != "" {
		parts = append(parts, "["+ev.Kind+"]")
	}
	if ev.Room != "" {
		parts = append(parts, "("+ev.Room+")")
	}
	if ev.Teacher != "" {
		parts = append(parts, "— "+ev.Teacher)
	}
	return strings.Join(parts, " ")
}

// FormatDayList renders events grouped by date, for the bot's /today and
// /week replies.
func FormatDayList(header string, events []schedule.Event) string {
	if len(events) == 0 {
		return header + "\nNo lessons."
	}

	byDate := make(map[string][]schedule.Event)
	var dates []string
	for _, ev := range events {
		if _, ok := byDate[ev.Date]; !ok {
			dates = append(dates, ev.Date)
		}
		byDate[ev.Date] = append(byDate[ev.Date], ev)
	}
	sort.Strings(dates)

	var b strings.Builder
	b.WriteString(header)
	for _, d := range dates {
		day := byDate[d]
		sort.Slice(day, func(i, j int) bool { return day[i].Start < day[j].Start })
		b.WriteString("\n\n")
		b.WriteString(d)
		for _, ev := range day {
			fmt.Fprintf(&b, "\n• %s–%s %s", ev.Start, ev.End, ev.Title)
			if ev.Kind != "" {
				fmt.Fprintf(&b, " [%s]", ev.Kind)
			}
			if ev.Room != "" {
				fmt.Fprintf(&b, " (%s)", ev.Room)
			}
			if ev.Teacher != "" {
				fmt.Fprintf(&b, " — %s", ev.Teacher)
			}
		}
	}
	return b.String()
}

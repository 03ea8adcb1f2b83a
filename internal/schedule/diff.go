package schedule

import (
	"sort"
	"time"
)

// Partition splits a change list by whether the event lies on or after the
// cycle timestamp (future) or strictly before it (past).
type Partition struct {
	Future []Event `json:"future"`
	Past   []Event `json:"past"`
}

func (p Partition) Len() int { return len(p.Future) + len(p.Past) }

// All returns future followed by past entries.
func (p Partition) All() []Event {
	out := make([]Event, 0, p.Len())
	out = append(out, p.Future...)
	return append(out, p.Past...)
}

// ChangeSet is the structured difference between two snapshots of one
// group. There is no "modified" category: identity keys encode content, so
// a content edit surfaces as one removal plus one addition. Baseline marks
// a first observation (no previous snapshot), which callers typically
// suppress rather than broadcast.
type ChangeSet struct {
	GroupID  string    `json:"group_id"`
	Baseline bool      `json:"baseline"`
	At       time.Time `json:"at"`
	Added    Partition `json:"added"`
	Removed  Partition `json:"removed"`
}

// Empty reports whether the change set carries no additions or removals.
func (c *ChangeSet) Empty() bool {
	return c.Added.Len() == 0 && c.Removed.Len() == 0
}

// FutureRelevant reports whether any addition or removal concerns an event
// on or after the cycle timestamp.
func (c *ChangeSet) FutureRelevant() bool {
	return len(c.Added.Future) > 0 || len(c.Removed.Future) > 0
}

// Diff compares the previous snapshot (nil on first run) against the
// current one by identity key. The result is deterministic: for the same
// two snapshots the change set is byte-for-byte reproducible, with members
// ordered by date, start time, then identity key.
func Diff(prev, curr *Snapshot, now time.Time, loc *time.Location) *ChangeSet {
	cs := &ChangeSet{GroupID: curr.GroupID, At: now}

	currKeys := make(map[string]Event, len(curr.Events))
	for _, ev := range curr.Events {
		currKeys[ev.Key()] = ev
	}

	if prev == nil {
		cs.Baseline = true
		cs.Added = partition(sortedEvents(curr.Events), now, loc)
		return cs
	}

	prevKeys := make(map[string]Event, len(prev.Events))
	for _, ev := range prev.Events {
		prevKeys[ev.Key()] = ev
	}

	var added, removed []Event
	for key, ev := range currKeys {
		if _, ok := prevKeys[key]; !ok {
			added = append(added, ev)
		}
	}
	for key, ev := range prevKeys {
		if _, ok := currKeys[key]; !ok {
			removed = append(removed, ev)
		}
	}

	cs.Added = partition(sortedEvents(added), now, loc)
	cs.Removed = partition(sortedEvents(removed), now, loc)
	return cs
}

func sortedEvents(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func partition(events []Event, now time.Time, loc *time.Location) Partition {
	var p Partition
	for _, ev := range events {
		start, err := ev.StartTime(loc)
		if err != nil || start.Before(now) {
			p.Past = append(p.Past, ev)
			continue
		}
		p.Future = append(p.Future, ev)
	}
	return p
}

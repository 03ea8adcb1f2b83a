package notify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/msu-timetable/backend/internal/schedule"
)

func fmtEvent(date, start, end, title, room string) schedule.Event {
	return schedule.Event{GroupID: "104", Date: date, Start: start, End: end, Title: title, Room: room}
}

func TestFormatChangeSetPairsSameSlot(t *testing.T) {
	cs := &schedule.ChangeSet{
		GroupID: "104",
		At:      time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		Added: schedule.Partition{Future: []schedule.Event{
			fmtEvent("2026-09-07", "09:00", "10:35", "История России", "г265"),
		}},
		Removed: schedule.Partition{Future: []schedule.Event{
			fmtEvent("2026-09-07", "09:00", "10:35", "История России", "г264"),
		}},
	}

	text := FormatChangeSet(cs, true)

	assert.Contains(t, text, "104: schedule update (+0, −0, ±1)")
	assert.Contains(t, text, "Changed:")
	assert.Contains(t, text, "(г264)")
	assert.Contains(t, text, "(г265)")
	assert.NotContains(t, text, "Added:")
	assert.NotContains(t, text, "Removed:")
}

func TestFormatChangeSetSeparateAddsAndRemoves(t *testing.T) {
	cs := &schedule.ChangeSet{
		GroupID: "104",
		Added: schedule.Partition{Future: []schedule.Event{
			fmtEvent("2026-09-08", "10:50", "12:25", "Математика", ""),
		}},
		Removed: schedule.Partition{Future: []schedule.Event{
			fmtEvent("2026-09-07", "09:00", "10:35", "История России", ""),
		}},
	}

	text := FormatChangeSet(cs, true)
	assert.Contains(t, text, "(+1, −1, ±0)")
	assert.Contains(t, text, "Added:")
	assert.Contains(t, text, "Removed:")
	assert.Contains(t, text, "+ 2026-09-08 10:50–12:25 Математика")
	assert.Contains(t, text, "− 2026-09-07 09:00–10:35 История России")
}

func TestFormatChangeSetFutureOnlyDropsPast(t *testing.T) {
	cs := &schedule.ChangeSet{
		GroupID: "104",
		Added: schedule.Partition{
			Future: []schedule.Event{fmtEvent("2026-09-08", "09:00", "10:35", "Будущая", "")},
			Past:   []schedule.Event{fmtEvent("2026-08-20", "09:00", "10:35", "Прошедшая", "")},
		},
	}

	futureOnly := FormatChangeSet(cs, true)
	assert.Contains(t, futureOnly, "Будущая")
	assert.NotContains(t, futureOnly, "Прошедшая")

	everything := FormatChangeSet(cs, false)
	assert.Contains(t, everything, "Прошедшая")
}

func TestFormatChangeSetTruncatesLongLists(t *testing.T) {
	var added []schedule.Event
	for i := 0; i < 20; i++ {
		added = append(added, fmtEvent("2026-09-08", fmt.Sprintf("%02d:00", i), fmt.Sprintf("%02d:45", i), "Пара", ""))
	}
	cs := &schedule.ChangeSet{GroupID: "104", Added: schedule.Partition{Future: added}}

	text := FormatChangeSet(cs, true)
	assert.Contains(t, text, "… and 8 more")
	assert.Equal(t, maxDiffLines, strings.Count(text, "\n+ "))
}

func TestFormatDayList(t *testing.T) {
	events := []schedule.Event{
		{Date: "2026-09-08", Start: "09:00", End: "10:35", Title: "Математика", Kind: "Сем"},
		{Date: "2026-09-07", Start: "10:50", End: "12:25", Title: "Физика", Room: "г101"},
		{Date: "2026-09-07", Start: "09:00", End: "10:35", Title: "История России", Teacher: "Иванова И. И."},
	}

	text := FormatDayList("Week 2026-09-07 to 2026-09-13", events)

	// Days in order, lessons sorted within the day.
	first := strings.Index(text, "2026-09-07")
	second := strings.Index(text, "2026-09-08")
	assert.True(t, first >= 0 && second > first)
	assert.Less(t, strings.Index(text, "История России"), strings.Index(text, "Физика"))
	assert.Contains(t, text, "[Сем]")
	assert.Contains(t, text, "(г101)")
	assert.Contains(t, text, "— Иванова И. И.")
}

func TestFormatDayListEmpty(t *testing.T) {
	text := FormatDayList("2026-09-07", nil)
	assert.Contains(t, text, "No lessons.")
}

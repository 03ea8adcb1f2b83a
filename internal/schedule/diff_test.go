package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*60*60)

func snap(groupID string, events ...Event) *Snapshot {
	return &Snapshot{
		GroupID:    groupID,
		CapturedAt: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		Events:     events,
	}
}

func ev(date, start, title string) Event {
	return Event{GroupID: "104", Date: date, Start: start, End: "10:35", Title: title}
}

func TestDiffBaseline(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	curr := snap("104", ev("2026-09-07", "09:00", "История России"))

	cs := Diff(nil, curr, now, msk)

	assert.True(t, cs.Baseline)
	assert.Equal(t, 1, cs.Added.Len())
	assert.Equal(t, 0, cs.Removed.Len())
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	a := snap("104", ev("2026-09-07", "09:00", "История России"), ev("2026-09-08", "10:50", "Математика"))
	b := snap("104", ev("2026-09-08", "10:50", "Математика"), ev("2026-09-07", "09:00", "История России"))

	cs := Diff(a, b, now, msk)
	assert.False(t, cs.Baseline)
	assert.True(t, cs.Empty())
}

func TestDiffAddAndRemove(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	prev := snap("104", ev("2026-09-07", "09:00", "История России"))
	curr := snap("104", ev("2026-09-08", "10:50", "Математика"))

	cs := Diff(prev, curr, now, msk)

	require.Equal(t, 1, cs.Added.Len())
	require.Equal(t, 1, cs.Removed.Len())
	assert.Equal(t, "Математика", cs.Added.All()[0].Title)
	assert.Equal(t, "История России", cs.Removed.All()[0].Title)
}

func TestDiffContentEditIsRemovePlusAdd(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	before := ev("2026-09-07", "09:00", "История России")
	after := before
	after.Room = "г264"

	cs := Diff(snap("104", before), snap("104", after), now, msk)
	assert.Equal(t, 1, cs.Added.Len())
	assert.Equal(t, 1, cs.Removed.Len())
}

func TestDiffPartitionsFutureAndPast(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, msk)
	past := ev("2026-09-07", "09:00", "Утренняя пара")
	future := ev("2026-09-07", "14:40", "Дневная пара")

	cs := Diff(snap("104"), snap("104", past, future), now, msk)

	require.Len(t, cs.Added.Future, 1)
	require.Len(t, cs.Added.Past, 1)
	assert.Equal(t, "Дневная пара", cs.Added.Future[0].Title)
	assert.Equal(t, "Утренняя пара", cs.Added.Past[0].Title)
	assert.True(t, cs.FutureRelevant())
}

func TestFutureRelevantFalseForPastOnly(t *testing.T) {
	now := time.Date(2026, 9, 8, 0, 0, 0, 0, msk)
	cs := Diff(snap("104"), snap("104", ev("2026-09-07", "09:00", "Вчерашняя пара")), now, msk)

	assert.False(t, cs.Empty())
	assert.False(t, cs.FutureRelevant())
}

func TestDiffOrderingIsDeterministic(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	events := []Event{
		ev("2026-09-08", "09:00", "B"),
		ev("2026-09-07", "14:40", "C"),
		ev("2026-09-07", "09:00", "A"),
	}

	first := Diff(snap("104"), snap("104", events...), now, msk)
	reversed := Diff(snap("104"), snap("104", events[2], events[1], events[0]), now, msk)

	assert.Equal(t, first.Added, reversed.Added)
	titles := make([]string, 0, first.Added.Len())
	for _, e := range first.Added.All() {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"A", "C", "B"}, titles)
}

func TestDiffUnparseableStartCountsAsPast(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, msk)
	broken := Event{GroupID: "104", Date: "2026-09-07", Start: "garbage", End: "10:35", Title: "X"}

	cs := Diff(snap("104"), snap("104", broken), now, msk)
	assert.Len(t, cs.Added.Past, 1)
	assert.Empty(t, cs.Added.Future)
}

// Package feed renders group snapshots into ICS calendar documents and
// maintains the per-group metadata index consumed by the HTTP server.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/msu-timetable/backend/internal/schedule"
)

// PublishError reports a failed calendar publication. The cycle keeps its
// previous baseline when publication fails and retries on the next tick.
type PublishError struct {
	GroupID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing feed for group %s: %v", e.GroupID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// GroupMeta describes one published group in the global index.
type GroupMeta struct {
	GroupID     string    `json:"group_id"`
	Name        string    `json:"name"`
	EventCount  int       `json:"event_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// Index maps every published group to its metadata.
type Index struct {
	Groups []GroupMeta `json:"groups"`
}

// Publisher writes calendar documents and index metadata under a storage
// root. All writes are temp-file-plus-rename so concurrent readers never
// see a torn file.
type Publisher struct {
	root string
	loc  *time.Location

	// guards index.json read-modify-write across concurrent group cycles
	indexMu sync.Mutex
}

// NewPublisher creates a publisher rooted at the given directory, with
// event times interpreted in loc.
func NewPublisher(root string, loc *time.Location) (*Publisher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating feed root: %w", err)
	}
	return &Publisher{root: root, loc: loc}, nil
}

// CalendarPath returns the on-disk location of a group's feed.
func CalendarPath(root, groupID string) string {
	return filepath.Join(root, groupID, "calendar.ics")
}

// IndexPath returns the on-disk location of the global index.
func IndexPath(root string) string {
	return filepath.Join(root, "index.json")
}

// Publish renders the snapshot into the group's calendar document and
// updates the group's entry in the global index. It returns the event
// count and whether the document bytes changed since the last publish.
func (p *Publisher) Publish(snap *schedule.Snapshot, name string) (int, bool, error) {
	data := []byte(Render(snap, p.loc))
	path := CalendarPath(p.root, snap.GroupID)

	// A read failure leaves prev empty, which just reports the feed as
	// changed.
	prev, _ := os.ReadFile(path)
	changed := string(prev) != string(data)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, false, &PublishError{GroupID: snap.GroupID, Err: err}
	}
	if err := atomicWrite(path, data); err != nil {
		return 0, false, &PublishError{GroupID: snap.GroupID, Err: err}
	}

	meta := GroupMeta{
		GroupID:     snap.GroupID,
		Name:        name,
		EventCount:  len(snap.Events),
		LastUpdated: snap.CapturedAt.UTC(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, false, &PublishError{GroupID: snap.GroupID, Err: err}
	}
	if err := atomicWrite(filepath.Join(p.root, snap.GroupID, "meta.json"), metaData); err != nil {
		return 0, false, &PublishError{GroupID: snap.GroupID, Err: err}
	}

	if err := p.updateIndex(meta); err != nil {
		return 0, false, &PublishError{GroupID: snap.GroupID, Err: err}
	}

	return len(snap.Events), changed, nil
}

func (p *Publisher) updateIndex(meta GroupMeta) error {
	p.indexMu.Lock()
	defer p.indexMu.Unlock()

	idx, err := ReadIndex(p.root)
	if err != nil {
		idx = Index{}
	}

	replaced := false
	for i := range idx.Groups {
		if idx.Groups[i].GroupID == meta.GroupID {
			idx.Groups[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Groups = append(idx.Groups, meta)
	}
	sort.Slice(idx.Groups, func(i, j int) bool {
		return idx.Groups[i].GroupID < idx.Groups[j].GroupID
	})

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(IndexPath(p.root), data)
}

// ReadIndex loads the global group index; an absent index is empty, not
// an error.
func ReadIndex(root string) (Index, error) {
	var idx Index
	data, err := os.ReadFile(IndexPath(root))
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("reading index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("decoding index: %w", err)
	}
	return idx, nil
}

// Render produces the ICS document for a snapshot. Rendering is
// byte-for-byte stable for a given snapshot: events are sorted, field
// order is fixed by the library, and DTSTAMP comes from the snapshot's
// capture time rather than the wall clock.
func Render(snap *schedule.Snapshot, loc *time.Location) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//msu-timetable//backend//EN")

	for _, ev := range sortForRender(snap.Events) {
		ve := cal.AddEvent(ev.Key())
		ve.SetDtStampTime(snap.CapturedAt.UTC())

		if start, err := ev.StartTime(loc); err == nil {
			ve.SetStartAt(start.UTC())
		}
		if end, err := ev.EndTime(loc); err == nil {
			ve.SetEndAt(end.UTC())
		}

		ve.SetSummary(summaryLine(ev))
		if ev.Room != "" {
			ve.SetLocation(ev.Room)
		}
		if desc := descriptionLines(ev); len(desc) > 0 {
			ve.SetDescription(strings.Join(desc, "\n"))
		}
		ve.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal.Serialize()
}

func summaryLine(ev schedule.Event) string {
	if ev.Kind != "" {
		return ev.Title + " [" + ev.Kind + "]"
	}
	return ev.Title
}

func descriptionLines(ev schedule.Event) []string {
	var out []string
	if ev.PairLabel != "" {
		out = append(out, ev.PairLabel+" ("+ev.Start+"–"+ev.End+")")
	}
	if ev.Teacher != "" {
		out = append(out, "Teacher: "+ev.Teacher)
	}
	if ev.Room != "" {
		out = append(out, "Room: "+ev.Room)
	}
	if ev.GroupInfo != "" {
		out = append(out, "Groups: "+ev.GroupInfo)
	}
	if ev.AddedAt != "" {
		out = append(out, "Added: "+ev.AddedAt)
	}
	if ev.Raw != "" {
		out = append(out, "Source: "+ev.Raw)
	}
	return out
}

func sortForRender(events []schedule.Event) []schedule.Event {
	out := make([]schedule.Event, len(events))
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

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

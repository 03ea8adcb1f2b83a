// Package pipeline drives the periodic scrape, diff and publish cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/msu-timetable/backend/internal/feed"
	"github.com/msu-timetable/backend/internal/notify"
	"github.com/msu-timetable/backend/internal/schedule"
	"github.com/msu-timetable/backend/internal/scraper"
	"github.com/msu-timetable/backend/internal/snapshot"
)

// Group is a timetable group under sync.
type Group struct {
	ID   string
	Name string
}

// GroupsFromNames derives stable group IDs for the configured names.
func GroupsFromNames(names []string) []Group {
	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{ID: schedule.GroupIDFromName(name), Name: name})
	}
	return groups
}

// SyncResult summarizes one completed cycle for a group.
type SyncResult struct {
	GroupID     string
	Events      int
	Skipped     int
	Added       int
	Removed     int
	Baseline    bool
	FeedChanged bool
	Notified    int
	SyncedAt    time.Time
}

// SyncService runs the full cycle for one group: fetch raw rows,
// normalize, merge language tracks, diff against the stored baseline,
// publish the feed, broadcast changes, then save the new baseline. The
// baseline is saved last so a crash mid-cycle re-diffs the same changes
// on the next tick instead of losing them.
type SyncService struct {
	source      scraper.Source
	snapshots   *snapshot.Store
	publisher   *feed.Publisher
	broadcaster *notify.Broadcaster // nil when Telegram is disabled
	loc         *time.Location

	// One mutex per group so cycles for the same group never overlap.
	groupMu map[string]*sync.Mutex
}

func NewSyncService(
	source scraper.Source,
	snapshots *snapshot.Store,
	publisher *feed.Publisher,
	broadcaster *notify.Broadcaster,
	groups []Group,
	loc *time.Location,
) *SyncService {
	mu := make(map[string]*sync.Mutex, len(groups))
	for _, g := range groups {
		mu[g.ID] = &sync.Mutex{}
	}
	return &SyncService{
		source:      source,
		snapshots:   snapshots,
		publisher:   publisher,
		broadcaster: broadcaster,
		loc:         loc,
		groupMu:     mu,
	}
}

// RunCycle executes one sync pass for the group.
func (s *SyncService) RunCycle(ctx context.Context, group Group) (*SyncResult, error) {
	mu, ok := s.groupMu[group.ID]
	if !ok {
		return nil, fmt.Errorf("unknown group %s", group.ID)
	}
	mu.Lock()
	defer mu.Unlock()

	result := &SyncResult{
		GroupID:  group.ID,
		SyncedAt: time.Now().UTC(),
	}

	items, err := s.source.Fetch(ctx, group.Name)
	if err != nil {
		if errors.Is(err, scraper.ErrTimeout) {
			log.Printf("sync: group %s: fetch timed out, keeping previous baseline", group.ID)
		}
		return nil, fmt.Errorf("fetching group %s: %w", group.ID, err)
	}

	events := make([]schedule.Event, 0, len(items))
	for _, item := range items {
		ev, err := schedule.Normalize(item, group.ID)
		if err != nil {
			var malformed *schedule.MalformedItemError
			if errors.As(err, &malformed) {
				result.Skipped++
				log.Printf("sync: group %s: skipping row: %v", group.ID, err)
				continue
			}
			return nil, fmt.Errorf("normalizing row for group %s: %w", group.ID, err)
		}
		events = append(events, ev)
	}
	events = schedule.MergeLanguageTracks(events)

	snap := &schedule.Snapshot{
		GroupID:    group.ID,
		CapturedAt: result.SyncedAt,
		Events:     events,
	}
	result.Events = len(events)

	prev, err := s.snapshots.Load(group.ID)
	if err != nil {
		return nil, fmt.Errorf("loading baseline for group %s: %w", group.ID, err)
	}

	now := time.Now().In(s.loc)
	cs := schedule.Diff(prev, snap, now, s.loc)
	result.Baseline = cs.Baseline
	result.Added = cs.Added.Len()
	result.Removed = cs.Removed.Len()

	// An unchanged timetable keeps its previous capture time, so the
	// rendered feed stays byte-identical and LastUpdated reflects the
	// last actual change.
	if !cs.Baseline && cs.Empty() {
		snap.CapturedAt = prev.CapturedAt
	}

	_, changed, err := s.publisher.Publish(snap, group.Name)
	if err != nil {
		// Feed publication failed; keep the old baseline so the change
		// is retried next cycle.
		return nil, fmt.Errorf("publishing group %s: %w", group.ID, err)
	}
	result.FeedChanged = changed

	if s.broadcaster != nil {
		sent, err := s.broadcaster.Broadcast(ctx, cs)
		if err != nil {
			// Broadcast fails only before any delivery, so keeping the
			// old baseline re-diffs and re-notifies on the next tick
			// without duplicating messages.
			return nil, fmt.Errorf("broadcasting group %s: %w", group.ID, err)
		}
		result.Notified = sent
	}

	if err := s.snapshots.Save(group.ID, snap); err != nil {
		return nil, fmt.Errorf("saving baseline for group %s: %w", group.ID, err)
	}
	return result, nil
}

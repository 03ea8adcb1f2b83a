package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/msu-timetable/backend/internal/notify"
)

// Scheduler runs the sync cycle for every configured group on an
// interval.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	broadcaster *notify.Broadcaster // nil when Telegram is disabled
	groups      []Group
	interval    time.Duration

	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex
}

func NewScheduler(syncService *SyncService, broadcaster *notify.Broadcaster, groups []Group, interval time.Duration) *Scheduler {
	if interval < time.Minute {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		cron:        cron.New(),
		syncService: syncService,
		broadcaster: broadcaster,
		groups:      groups,
		interval:    interval,
		jobs:        make(map[string]cron.EntryID),
	}
}

// Start runs an immediate first pass for every group, then schedules
// the periodic ones.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Printf("scheduler: starting with %d groups every %s", len(s.groups), s.interval)

	for _, group := range s.groups {
		group := group
		go s.syncGroup(ctx, group)

		spec := "@every " + s.interval.String()
		entryID, err := s.cron.AddFunc(spec, func() {
			s.syncGroup(ctx, group)
		})
		if err != nil {
			return err
		}
		s.jobsMu.Lock()
		s.jobs[group.ID] = entryID
		s.jobsMu.Unlock()
	}

	s.cron.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() {
	log.Println("scheduler: stopping")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("scheduler: stopped")
}

// TriggerSync runs an immediate cycle for the group outside the cron
// cadence.
func (s *Scheduler) TriggerSync(groupID string) bool {
	for _, group := range s.groups {
		if group.ID == groupID {
			go s.syncGroup(context.Background(), group)
			return true
		}
	}
	return false
}

// NextRun reports the next scheduled cycle for the group.
func (s *Scheduler) NextRun(groupID string) *time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if entryID, ok := s.jobs[groupID]; ok {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}

func (s *Scheduler) syncGroup(ctx context.Context, group Group) {
	result, err := s.syncService.RunCycle(ctx, group)
	if err != nil {
		log.Printf("scheduler: sync failed for group %s: %v", group.ID, err)
		if s.broadcaster != nil {
			s.broadcaster.NotifyAdmin("Sync failed for group " + group.Name + ": " + err.Error())
		}
		return
	}
	log.Printf("scheduler: group %s synced: %d events (%d skipped), +%d -%d, feed changed=%t, notified %d",
		result.GroupID, result.Events, result.Skipped, result.Added, result.Removed, result.FeedChanged, result.Notified)
}

package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/msu-timetable/backend/internal/schedule"
	"github.com/msu-timetable/backend/internal/subscriber"
)

// Broadcaster fans a change summary out to every chat subscribed to the
// affected group. Delivery failures are isolated per recipient so one
// blocked chat never stops the rest of the fan-out.
type Broadcaster struct {
	store       subscriber.Store
	sender      Sender
	adminChatID int64
	futureOnly  bool
}

func NewBroadcaster(store subscriber.Store, sender Sender, adminChatID int64, futureOnly bool) *Broadcaster {
	return &Broadcaster{
		store:       store,
		sender:      sender,
		adminChatID: adminChatID,
		futureOnly:  futureOnly,
	}
}

// Broadcast delivers the change set to the group's subscribers. Baseline
// captures, empty diffs and (in future-only mode) diffs touching only past
// events are suppressed. Returns the number of chats reached.
func (b *Broadcaster) Broadcast(ctx context.Context, cs *schedule.ChangeSet) (int, error) {
	if cs == nil || cs.Empty() {
		return 0, nil
	}
	if cs.Baseline {
		log.Printf("notify: group %s: baseline capture, notification suppressed", cs.GroupID)
		return 0, nil
	}
	if b.futureOnly && !cs.FutureRelevant() {
		log.Printf("notify: group %s: only past events changed, notification suppressed", cs.GroupID)
		return 0, nil
	}

	chats, err := b.store.ListSubscribers(ctx, cs.GroupID)
	if err != nil {
		return 0, fmt.Errorf("listing subscribers for group %s: %w", cs.GroupID, err)
	}
	if len(chats) == 0 {
		log.Printf("notify: group %s: no subscribers", cs.GroupID)
		return 0, nil
	}

	text := FormatChangeSet(cs, b.futureOnly)
	sent := 0
	failed := 0
	for _, chatID := range chats {
		if err := b.sender.Send(chatID, text); err != nil {
			failed++
			log.Printf("notify: sending to chat %d: %v", chatID, err)
			continue
		}
		sent++
	}
	log.Printf("notify: group %s: delivered to %d of %d chats", cs.GroupID, sent, len(chats))

	if failed > 0 && b.adminChatID != 0 {
		report := fmt.Sprintf("Broadcast for group %s failed for %d of %d chats", cs.GroupID, failed, len(chats))
		if err := b.sender.Send(b.adminChatID, report); err != nil {
			log.Printf("notify: admin report: %v", err)
		}
	}
	return sent, nil
}

// NotifyAdmin sends an operational message to the admin chat if one is
// configured.
func (b *Broadcaster) NotifyAdmin(text string) {
	if b.adminChatID == 0 {
		return
	}
	if err := b.sender.Send(b.adminChatID, text); err != nil {
		log.Printf("notify: admin message: %v", err)
	}
}

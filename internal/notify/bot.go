package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/msu-timetable/backend/internal/schedule"
	"github.com/msu-timetable/backend/internal/snapshot"
	"github.com/msu-timetable/backend/internal/subscriber"
)

const helpText = `Commands:
/subscribe - receive schedule change notifications
/unsubscribe - stop receiving notifications
/setgroup <group> - choose the group you follow
/today - today's schedule for your group
/week - this week's schedule for your group
/help - show this message`

// Bot answers subscriber commands over Telegram long polling. It reads
// the same published snapshots the HTTP feed serves, and shares the
// subscriber store with the broadcaster.
type Bot struct {
	api       *tgbotapi.BotAPI
	store     subscriber.Store
	snapshots *snapshot.Store
	groups    map[string]string // group id -> display name
	loc       *time.Location
}

func NewBot(api *tgbotapi.BotAPI, store subscriber.Store, snapshots *snapshot.Store, groups map[string]string, loc *time.Location) *Bot {
	return &Bot{
		api:       api,
		store:     store,
		snapshots: snapshots,
		groups:    groups,
		loc:       loc,
	}
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	log.Printf("bot: polling as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handle(ctx, update.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	var reply string
	var err error

	switch msg.Command() {
	case "start", "help":
		reply = helpText
	case "subscribe":
		reply, err = b.subscribe(ctx, chatID)
	case "unsubscribe":
		reply, err = b.unsubscribe(ctx, chatID)
	case "setgroup":
		reply, err = b.setGroup(ctx, chatID, strings.TrimSpace(msg.CommandArguments()))
	case "today":
		reply, err = b.daySchedule(ctx, chatID, time.Now().In(b.loc))
	case "week":
		reply, err = b.weekSchedule(ctx, chatID)
	default:
		reply = "Unknown command. Try /help."
	}
	if err != nil {
		log.Printf("bot: /%s from chat %d: %v", msg.Command(), chatID, err)
		reply = "Something went wrong, please try again later."
	}

	out := tgbotapi.NewMessage(chatID, reply)
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: replying to chat %d: %v", chatID, err)
	}
}

func (b *Bot) subscribe(ctx context.Context, chatID int64) (string, error) {
	created, err := b.store.Add(ctx, chatID)
	if err != nil {
		return "", err
	}
	gid, err := b.store.SelectedGroup(ctx, chatID)
	if err != nil {
		return "", err
	}
	switch {
	case !created:
		return "You are already subscribed.", nil
	case gid == "":
		return "Subscribed. Pick a group with /setgroup to start receiving updates.", nil
	default:
		return fmt.Sprintf("Subscribed to updates for group %s.", b.groupName(gid)), nil
	}
}

func (b *Bot) unsubscribe(ctx context.Context, chatID int64) (string, error) {
	removed, err := b.store.Remove(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !removed {
		return "You were not subscribed.", nil
	}
	return "Unsubscribed. You will no longer receive updates.", nil
}

func (b *Bot) setGroup(ctx context.Context, chatID int64, arg string) (string, error) {
	if arg == "" {
		return "Usage: /setgroup <group>\nAvailable: " + b.availableGroups(), nil
	}
	gid := schedule.GroupIDFromName(arg)
	if _, ok := b.groups[gid]; !ok {
		return fmt.Sprintf("Unknown group %q. Available: %s", arg, b.availableGroups()), nil
	}
	if err := b.store.SetSelectedGroup(ctx, chatID, gid); err != nil {
		return "", err
	}
	return fmt.Sprintf("Group set to %s.", b.groupName(gid)), nil
}

func (b *Bot) daySchedule(ctx context.Context, chatID int64, day time.Time) (string, error) {
	snap, gid, reply, err := b.loadSnapshot(ctx, chatID)
	if snap == nil {
		return reply, err
	}
	date := day.Format("2006-01-02")
	var events []schedule.Event
	for _, ev := range snap.Events {
		if ev.Date == date {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return fmt.Sprintf("No classes on %s for group %s.", date, b.groupName(gid)), nil
	}
	return FormatDayList(fmt.Sprintf("%s, group %s", date, b.groupName(gid)), events), nil
}

func (b *Bot) weekSchedule(ctx context.Context, chatID int64) (string, error) {
	snap, gid, reply, err := b.loadSnapshot(ctx, chatID)
	if snap == nil {
		return reply, err
	}
	now := time.Now().In(b.loc)
	// Monday of the current week.
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	from := monday.Format("2006-01-02")
	to := monday.AddDate(0, 0, 6).Format("2006-01-02")

	var events []schedule.Event
	for _, ev := range snap.Events {
		if ev.Date >= from && ev.Date <= to {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return fmt.Sprintf("No classes between %s and %s for group %s.", from, to, b.groupName(gid)), nil
	}
	return FormatDayList(fmt.Sprintf("Week %s to %s, group %s", from, to, b.groupName(gid)), events), nil
}

// loadSnapshot resolves the chat's group and its latest snapshot. A nil
// snapshot with nil error carries a user-facing reply instead.
func (b *Bot) loadSnapshot(ctx context.Context, chatID int64) (*schedule.Snapshot, string, string, error) {
	gid, err := b.store.SelectedGroup(ctx, chatID)
	if err != nil {
		return nil, "", "", err
	}
	if gid == "" {
		return nil, "", "No group selected. Pick one with /setgroup.", nil
	}
	snap, err := b.snapshots.Load(gid)
	if err != nil {
		return nil, "", "", err
	}
	if snap == nil {
		return nil, "", fmt.Sprintf("No schedule published yet for group %s.", b.groupName(gid)), nil
	}
	return snap, gid, "", nil
}

func (b *Bot) groupName(gid string) string {
	if name, ok := b.groups[gid]; ok {
		return name
	}
	return gid
}

func (b *Bot) availableGroups() string {
	names := make([]string, 0, len(b.groups))
	for _, name := range b.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

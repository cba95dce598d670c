// Package sched drives the time-based side of the bot: the minutely due
// sweeps for tasks and reminders, the hourly subscription expiry sweep and
// the daily agenda summary. All schedules run in the bot's anchor timezone.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/zakkerni/zakkerni/internal/bus"
	"github.com/zakkerni/zakkerni/internal/store"
	"github.com/zakkerni/zakkerni/internal/timeparse"
)

// Store is the persistence surface the sweeps run against.
type Store interface {
	DueTasks(ctx context.Context, now time.Time) ([]store.Task, error)
	MarkNotified(ctx context.Context, taskID int64) error
	CreateTask(ctx context.Context, userID int64, title string, due *time.Time, rec store.Recurrence) (int64, error)
	DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error)
	RearmReminder(ctx context.Context, reminderID int64, nextFire time.Time) error
	ExpireSubscriptions(ctx context.Context, now time.Time) ([]int64, error)
	PremiumUsers(ctx context.Context, now time.Time) ([]int64, error)
	TasksDueBy(ctx context.Context, userID int64, end time.Time) ([]store.Task, error)
}

// Notifier delivers one outbound message. channels.Manager satisfies it.
type Notifier interface {
	Send(msg bus.OutboundMessage) error
}

type Config struct {
	Location    *time.Location
	Channel     string // channel name notifications go out on
	SummaryHour int    // local hour of the daily agenda summary

	// FixedInterval re-arms reminders from the missed fire moment instead
	// of the sweep clock, so the cadence stays anchored even when the bot
	// was down across fires.
	FixedInterval bool
}

type Service struct {
	scheduler *robfigcron.Cron
	store     Store
	notify    Notifier
	loc       *time.Location
	channel   string
	summaryAt int
	fixed     bool
	now       func() time.Time
}

func NewService(st Store, notify Notifier, cfg Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "telegram"
	}
	return &Service{
		scheduler: robfigcron.New(robfigcron.WithLocation(loc)),
		store:     st,
		notify:    notify,
		loc:       loc,
		channel:   channel,
		summaryAt: cfg.SummaryHour,
		fixed:     cfg.FixedInterval,
		now:       time.Now,
	}
}

// Start registers the sweeps and begins the scheduler.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.scheduler.AddFunc("* * * * *", func() {
		s.SweepTasks(ctx)
		s.SweepReminders(ctx)
	}); err != nil {
		return fmt.Errorf("register due sweep: %w", err)
	}
	if _, err := s.scheduler.AddFunc("0 * * * *", func() {
		s.SweepExpiry(ctx)
	}); err != nil {
		return fmt.Errorf("register expiry sweep: %w", err)
	}
	if _, err := s.scheduler.AddFunc(fmt.Sprintf("0 %d * * *", s.summaryAt), func() {
		s.SendDailySummary(ctx)
	}); err != nil {
		return fmt.Errorf("register daily summary: %w", err)
	}
	s.scheduler.Start()
	return nil
}

// Stop stops the scheduler and waits for running sweeps to finish.
func (s *Service) Stop() {
	<-s.scheduler.Stop().Done()
}

// SweepTasks notifies every task whose due has passed. A recurring task gets
// a fresh row for its next occurrence; the fired row keeps its history. A
// failed delivery leaves the task un-notified so the next sweep retries it.
func (s *Service) SweepTasks(ctx context.Context) {
	now := s.now()
	tasks, err := s.store.DueTasks(ctx, now)
	if err != nil {
		slog.Error("due task sweep failed", "error", err)
		return
	}

	for _, task := range tasks {
		content := fmt.Sprintf("🔔 معاد مهمتك!\n\n📝 %s", task.Title)
		if task.Due != nil {
			content += fmt.Sprintf("\n⏰ %s", timeparse.FormatDue(*task.Due, now))
		}
		msg := bus.OutboundMessage{
			Channel: s.channel,
			ChatID:  task.UserID,
			Content: content,
			InlineRows: [][]bus.Button{{
				{Text: "تم ✅", Data: fmt.Sprintf("done:%d", task.ID)},
				{Text: "حذف 🗑", Data: fmt.Sprintf("del:%d", task.ID)},
			}},
		}
		if err := s.notify.Send(msg); err != nil {
			slog.Error("task notification failed", "task", task.ID, "user", task.UserID, "error", err)
			continue
		}
		if err := s.store.MarkNotified(ctx, task.ID); err != nil {
			slog.Error("mark notified failed", "task", task.ID, "error", err)
			continue
		}
		if task.Due == nil {
			continue
		}
		if next, ok := task.Recurrence.NextDue(*task.Due); ok {
			if _, err := s.store.CreateTask(ctx, task.UserID, task.Title, &next, task.Recurrence); err != nil {
				slog.Error("recurrence advance failed", "task", task.ID, "error", err)
			}
		}
	}
}

// SweepReminders fires every reminder whose next fire has passed and re-arms
// it one interval ahead. The default re-arm counts from the sweep clock so a
// downtime gap does not burst missed fires; FixedInterval instead advances
// from the stored fire moment until it lands in the future.
func (s *Service) SweepReminders(ctx context.Context) {
	now := s.now()
	reminders, err := s.store.DueReminders(ctx, now)
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return
	}

	for _, r := range reminders {
		msg := bus.OutboundMessage{
			Channel: s.channel,
			ChatID:  r.UserID,
			Content: fmt.Sprintf("⏰ تذكير: %s\n🔄 كل %s", r.Text, timeparse.FormatInterval(r.IntervalMins)),
			InlineRows: [][]bus.Button{{
				{Text: "إيقاف ⏸", Data: fmt.Sprintf("rpause:%d", r.ID)},
				{Text: "حذف 🗑", Data: fmt.Sprintf("rdel:%d", r.ID)},
			}},
		}
		if err := s.notify.Send(msg); err != nil {
			slog.Error("reminder notification failed", "reminder", r.ID, "user", r.UserID, "error", err)
			continue
		}

		interval := time.Duration(r.IntervalMins) * time.Minute
		next := now.Add(interval)
		if s.fixed {
			next = r.NextFire.Add(interval)
			for !next.After(now) {
				next = next.Add(interval)
			}
		}
		if err := s.store.RearmReminder(ctx, r.ID, next); err != nil {
			slog.Error("reminder re-arm failed", "reminder", r.ID, "error", err)
		}
	}
}

// SweepExpiry downgrades lapsed premium subscriptions and tells their owners.
func (s *Service) SweepExpiry(ctx context.Context) {
	expired, err := s.store.ExpireSubscriptions(ctx, s.now())
	if err != nil {
		slog.Error("subscription expiry sweep failed", "error", err)
		return
	}
	for _, userID := range expired {
		err := s.notify.Send(bus.OutboundMessage{
			Channel: s.channel,
			ChatID:  userID,
			Content: "⭐ انتهى اشتراكك في بريميوم. ابعت /premium لو عايز تجدد.",
		})
		if err != nil {
			slog.Error("expiry notification failed", "user", userID, "error", err)
		}
	}
}

// SendDailySummary sends every premium owner their agenda for the day:
// overdue tasks first, then the rest of today. An owner with nothing pending
// gets a free-day note instead.
func (s *Service) SendDailySummary(ctx context.Context) {
	now := s.now().In(s.loc)
	users, err := s.store.PremiumUsers(ctx, now)
	if err != nil {
		slog.Error("daily summary user listing failed", "error", err)
		return
	}

	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, s.loc)

	for _, userID := range users {
		tasks, err := s.store.TasksDueBy(ctx, userID, endOfDay)
		if err != nil {
			slog.Error("daily summary query failed", "user", userID, "error", err)
			continue
		}
		err = s.notify.Send(bus.OutboundMessage{
			Channel: s.channel,
			ChatID:  userID,
			Content: summaryText(tasks, now),
		})
		if err != nil {
			slog.Error("daily summary delivery failed", "user", userID, "error", err)
		}
	}
}

func summaryText(tasks []store.Task, now time.Time) string {
	var overdue, today []store.Task
	for _, t := range tasks {
		if t.Due != nil && t.Due.Before(now) {
			overdue = append(overdue, t)
		} else {
			today = append(today, t)
		}
	}

	if len(overdue) == 0 && len(today) == 0 {
		return "☀️ صباح الخير!\n\nيومك فاضي النهاردة، استمتع 🎉"
	}

	out := "☀️ صباح الخير! دي أجندتك النهاردة:\n"
	if len(overdue) > 0 {
		out += "\n⚠️ متأخرة:\n"
		for _, t := range overdue {
			out += taskLine(t, now)
		}
	}
	if len(today) > 0 {
		out += "\n📅 النهاردة:\n"
		for _, t := range today {
			out += taskLine(t, now)
		}
	}
	return out
}

func taskLine(t store.Task, now time.Time) string {
	if t.Due == nil {
		return fmt.Sprintf("• %s\n", t.Title)
	}
	return fmt.Sprintf("• %s (%s)\n", t.Title, timeparse.FormatDue(*t.Due, now))
}

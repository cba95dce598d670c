package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var testZone = time.FixedZone("EET", 2*60*60)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"), testZone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, testZone)

	if err := s.EnsureUser(ctx, 1, "amira"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	due := now.Add(time.Hour)
	id, err := s.CreateTask(ctx, 1, "اشتري هدية", &due, RecurrenceNone)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateTask returned zero id")
	}

	n, err := s.CountTasks(ctx, 1)
	if err != nil || n != 1 {
		t.Fatalf("CountTasks = %d, %v; want 1", n, err)
	}

	tasks, err := s.Tasks(ctx, 1, false)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "اشتري هدية" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].Due == nil || !tasks[0].Due.Equal(due) {
		t.Errorf("due = %v, want %v", tasks[0].Due, due)
	}

	ok, err := s.MarkDone(ctx, id, 1)
	if err != nil || !ok {
		t.Fatalf("MarkDone = %v, %v; want true", ok, err)
	}
	// Completing it again or as another owner changes nothing.
	if ok, _ := s.MarkDone(ctx, id, 2); ok {
		t.Error("MarkDone succeeded for the wrong owner")
	}
	if n, _ := s.CountTasks(ctx, 1); n != 0 {
		t.Errorf("open task count after done = %d, want 0", n)
	}
}

func TestCreateRejectsUnknownOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, testZone)

	// Foreign keys are on: rows cannot reference a user that was never seen.
	if _, err := s.CreateTask(ctx, 55, "مهمة", &due, RecurrenceNone); err == nil {
		t.Error("CreateTask accepted an unknown owner")
	}
	if _, err := s.CreateReminder(ctx, 55, "اشرب ماء", 30, due); err == nil {
		t.Error("CreateReminder accepted an unknown owner")
	}
}

func TestTaskOwnerGuards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, testZone)

	if err := s.EnsureUser(ctx, 1, "amira"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	id, err := s.CreateTask(ctx, 1, "مهمة", &due, RecurrenceNone)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if ok, _ := s.DeleteTask(ctx, id, 99); ok {
		t.Error("DeleteTask succeeded for the wrong owner")
	}
	if ok, err := s.DeleteTask(ctx, id, 1); err != nil || !ok {
		t.Fatalf("DeleteTask = %v, %v; want true", ok, err)
	}
	// Already gone: idempotent no-op.
	if ok, _ := s.DeleteTask(ctx, id, 1); ok {
		t.Error("DeleteTask reported success on a deleted task")
	}
}

func TestDueTasksAndNotifiedFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, testZone)

	if err := s.EnsureUser(ctx, 1, "amira"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	past := now.Add(-10 * time.Minute)
	future := now.Add(time.Hour)
	pastID, err := s.CreateTask(ctx, 1, "فات وقتها", &past, RecurrenceNone)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := s.CreateTask(ctx, 1, "لسه بدري", &future, RecurrenceNone); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := s.CreateTask(ctx, 1, "بدون موعد", nil, RecurrenceNone); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	due, err := s.DueTasks(ctx, now)
	if err != nil {
		t.Fatalf("DueTasks: %v", err)
	}
	if len(due) != 1 || due[0].ID != pastID {
		t.Fatalf("DueTasks = %+v, want only the overdue task", due)
	}

	if err := s.MarkNotified(ctx, pastID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	due, _ = s.DueTasks(ctx, now)
	if len(due) != 0 {
		t.Fatalf("DueTasks after notify = %+v, want none", due)
	}
}

func TestRecurrenceNextDue(t *testing.T) {
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, testZone)

	next, ok := RecurrenceDaily.NextDue(due)
	if !ok || !next.Equal(due.AddDate(0, 0, 1)) {
		t.Errorf("daily next = %v, %v", next, ok)
	}
	next, ok = RecurrenceWeekly.NextDue(due)
	if !ok || !next.Equal(due.AddDate(0, 0, 7)) {
		t.Errorf("weekly next = %v, %v", next, ok)
	}
	if _, ok := RecurrenceNone.NextDue(due); ok {
		t.Error("none recurrence produced a next due")
	}
}

func TestReminderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, testZone)

	if err := s.EnsureUser(ctx, 1, "amira"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	id, err := s.CreateReminder(ctx, 1, "اشرب ماء", 30, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	if n, _ := s.CountReminders(ctx, 1); n != 1 {
		t.Fatalf("CountReminders = %d, want 1", n)
	}

	// Not yet due.
	due, err := s.DueReminders(ctx, now)
	if err != nil || len(due) != 0 {
		t.Fatalf("DueReminders = %+v, %v; want none", due, err)
	}

	due, err = s.DueReminders(ctx, now.Add(31*time.Minute))
	if err != nil || len(due) != 1 {
		t.Fatalf("DueReminders = %+v, %v; want one", due, err)
	}
	if due[0].Text != "اشرب ماء" || due[0].IntervalMins != 30 {
		t.Errorf("unexpected reminder: %+v", due[0])
	}

	if err := s.RearmReminder(ctx, id, now.Add(time.Hour)); err != nil {
		t.Fatalf("RearmReminder: %v", err)
	}
	if due, _ := s.DueReminders(ctx, now.Add(31*time.Minute)); len(due) != 0 {
		t.Fatalf("DueReminders after rearm = %+v, want none", due)
	}

	if ok, _ := s.PauseReminder(ctx, id, 2); ok {
		t.Error("PauseReminder succeeded for the wrong owner")
	}
	if ok, err := s.PauseReminder(ctx, id, 1); err != nil || !ok {
		t.Fatalf("PauseReminder = %v, %v; want true", ok, err)
	}
	if due, _ := s.DueReminders(ctx, now.Add(2*time.Hour)); len(due) != 0 {
		t.Fatalf("paused reminder still due: %+v", due)
	}
	// The listing keeps showing it, flagged inactive, so it can be resumed.
	listed, err := s.Reminders(ctx, 1)
	if err != nil || len(listed) != 1 {
		t.Fatalf("Reminders = %+v, %v; want the paused one listed", listed, err)
	}
	if listed[0].Active {
		t.Error("paused reminder listed as active")
	}

	if ok, err := s.ResumeReminder(ctx, id, 1, now.Add(time.Minute)); err != nil || !ok {
		t.Fatalf("ResumeReminder = %v, %v; want true", ok, err)
	}
	if ok, err := s.DeleteReminder(ctx, id, 1); err != nil || !ok {
		t.Fatalf("DeleteReminder = %v, %v; want true", ok, err)
	}
}

func TestPremiumLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, testZone)

	if err := s.EnsureUser(ctx, 7, "karim"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if premium, _ := s.IsPremium(ctx, 7, now); premium {
		t.Error("new user reported premium")
	}
	// Unknown users are simply not premium.
	if premium, err := s.IsPremium(ctx, 404, now); err != nil || premium {
		t.Errorf("IsPremium(unknown) = %v, %v", premium, err)
	}

	if err := s.SetPremium(ctx, 7, now.AddDate(0, 0, 30)); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	if premium, _ := s.IsPremium(ctx, 7, now); !premium {
		t.Error("user not premium after activation")
	}

	users, err := s.PremiumUsers(ctx, now)
	if err != nil || len(users) != 1 || users[0] != 7 {
		t.Fatalf("PremiumUsers = %v, %v; want [7]", users, err)
	}

	// Past the expiry the read-only check already denies premium, but the
	// flag is only flipped by the sweep.
	later := now.AddDate(0, 0, 31)
	if premium, _ := s.IsPremium(ctx, 7, later); premium {
		t.Error("expired subscription reported premium")
	}

	expired, err := s.ExpireSubscriptions(ctx, later)
	if err != nil || len(expired) != 1 || expired[0] != 7 {
		t.Fatalf("ExpireSubscriptions = %v, %v; want [7]", expired, err)
	}
	// Idempotent: a second sweep finds nothing to downgrade.
	expired, err = s.ExpireSubscriptions(ctx, later)
	if err != nil || len(expired) != 0 {
		t.Fatalf("second ExpireSubscriptions = %v, %v; want none", expired, err)
	}
}

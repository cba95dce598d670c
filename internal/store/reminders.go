package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CountReminders returns the number of active reminders the user owns.
func (s *Store) CountReminders(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE user_id = ? AND is_active = 1`, userID).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reminders for %d: %w", userID, err)
	}
	return n, nil
}

// CreateReminder inserts a reminder with its first fire moment and returns
// its id.
func (s *Store) CreateReminder(ctx context.Context, userID int64, body string, intervalMins int, nextFire time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, body, interval_mins, next_fire) VALUES (?, ?, ?, ?)`,
		userID, body, intervalMins, s.encodeTime(nextFire))
	if err != nil {
		return 0, fmt.Errorf("create reminder for %d: %w", userID, err)
	}
	return res.LastInsertId()
}

// Reminders returns the user's reminders, paused ones included, so the
// listing can offer a resume button on them.
func (s *Store) Reminders(ctx context.Context, userID int64) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, body, interval_mins, next_fire, is_active
		 FROM reminders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reminders for %d: %w", userID, err)
	}
	defer rows.Close()
	return s.scanReminders(rows)
}

// DueReminders returns active reminders whose next fire is at or before now.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, body, interval_mins, next_fire, is_active
		 FROM reminders WHERE is_active = 1 AND next_fire <= ?`,
		s.encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()
	return s.scanReminders(rows)
}

// RearmReminder sets the reminder's next fire moment after a delivery.
func (s *Store) RearmReminder(ctx context.Context, reminderID int64, nextFire time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET next_fire = ? WHERE id = ?`,
		s.encodeTime(nextFire), reminderID)
	if err != nil {
		return fmt.Errorf("rearm reminder %d: %w", reminderID, err)
	}
	return nil
}

// PauseReminder deactivates the reminder; guarded by owner id.
func (s *Store) PauseReminder(ctx context.Context, reminderID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET is_active = 0 WHERE id = ? AND user_id = ? AND is_active = 1`,
		reminderID, userID)
	if err != nil {
		return false, fmt.Errorf("pause reminder %d: %w", reminderID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResumeReminder reactivates the reminder with a fresh next fire moment.
func (s *Store) ResumeReminder(ctx context.Context, reminderID, userID int64, nextFire time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET is_active = 1, next_fire = ? WHERE id = ? AND user_id = ? AND is_active = 0`,
		s.encodeTime(nextFire), reminderID, userID)
	if err != nil {
		return false, fmt.Errorf("resume reminder %d: %w", reminderID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteReminder removes the reminder; guarded by owner id.
func (s *Store) DeleteReminder(ctx context.Context, reminderID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`, reminderID, userID)
	if err != nil {
		return false, fmt.Errorf("delete reminder %d: %w", reminderID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		var nextFire string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &r.IntervalMins, &nextFire, &r.Active); err != nil {
			return nil, err
		}
		nf, err := s.decodeTime(nextFire)
		if err != nil {
			return nil, fmt.Errorf("bad next_fire on reminder %d: %w", r.ID, err)
		}
		r.NextFire = nf
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

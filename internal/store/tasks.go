package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CountTasks returns the number of open (not done) tasks the user owns.
func (s *Store) CountTasks(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND is_done = 0`, userID).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks for %d: %w", userID, err)
	}
	return n, nil
}

// CreateTask inserts a task and returns its id. due may be nil for tasks
// saved without a deadline.
func (s *Store) CreateTask(ctx context.Context, userID int64, title string, due *time.Time, rec Recurrence) (int64, error) {
	var dueStr any
	if due != nil {
		dueStr = s.encodeTime(*due)
	}
	var recStr any
	if rec != RecurrenceNone {
		recStr = string(rec)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, due, recurrence) VALUES (?, ?, ?, ?)`,
		userID, title, dueStr, recStr)
	if err != nil {
		return 0, fmt.Errorf("create task for %d: %w", userID, err)
	}
	return res.LastInsertId()
}

// Tasks returns the user's tasks ordered by due, open ones only unless
// includeDone is set.
func (s *Store) Tasks(ctx context.Context, userID int64, includeDone bool) ([]Task, error) {
	query := `SELECT id, user_id, title, due, recurrence, is_done, notified, created_at
		FROM tasks WHERE user_id = ? AND is_done = 0 ORDER BY due ASC`
	if includeDone {
		query = `SELECT id, user_id, title, due, recurrence, is_done, notified, created_at
			FROM tasks WHERE user_id = ? ORDER BY due ASC`
	}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks for %d: %w", userID, err)
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

// MarkDone sets the completion flag. Guarded by owner id so a user cannot
// complete another user's task; reports whether a row changed, so a repeated
// press on an already-done task reads as not found.
func (s *Store) MarkDone(ctx context.Context, taskID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET is_done = 1 WHERE id = ? AND user_id = ? AND is_done = 0`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("mark task %d done: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteTask removes the task; guarded by owner id.
func (s *Store) DeleteTask(ctx context.Context, taskID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("delete task %d: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DueTasks returns tasks due at or before now that are neither done nor
// already notified.
func (s *Store) DueTasks(ctx context.Context, now time.Time) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, due, recurrence, is_done, notified, created_at
		 FROM tasks
		 WHERE is_done = 0 AND notified = 0 AND due IS NOT NULL AND due <= ?`,
		s.encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

// MarkNotified flags the task as notified. This flag is the sole guard
// against double notification for one occurrence.
func (s *Store) MarkNotified(ctx context.Context, taskID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET notified = 1 WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("mark task %d notified: %w", taskID, err)
	}
	return nil
}

// TasksDueBy returns the user's open tasks due at or before end (overdue
// included), ordered by due.
func (s *Store) TasksDueBy(ctx context.Context, userID int64, end time.Time) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, due, recurrence, is_done, notified, created_at
		 FROM tasks
		 WHERE user_id = ? AND is_done = 0 AND due IS NOT NULL AND due <= ?
		 ORDER BY due ASC`,
		userID, s.encodeTime(end))
	if err != nil {
		return nil, fmt.Errorf("query today tasks for %d: %w", userID, err)
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

func (s *Store) scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		var due, rec sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &due, &rec, &t.Done, &t.Notified, &createdAt); err != nil {
			return nil, err
		}
		if due.Valid {
			d, err := s.decodeTime(due.String)
			if err != nil {
				return nil, fmt.Errorf("bad due on task %d: %w", t.ID, err)
			}
			t.Due = &d
		}
		if rec.Valid {
			t.Recurrence = Recurrence(rec.String)
		}
		if ct, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			t.CreatedAt = ct.In(s.loc)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

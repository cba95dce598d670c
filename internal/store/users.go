package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// EnsureUser registers the user if not already present.
func (s *Store) EnsureUser(ctx context.Context, userID int64, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, username) VALUES (?, ?)`,
		userID, username)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// IsPremium reports whether the user holds an unexpired premium subscription.
// The check is read-only; flipping an expired flag is the expiry sweep's job.
func (s *Store) IsPremium(ctx context.Context, userID int64, now time.Time) (bool, error) {
	var premium bool
	var subEnd sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT is_premium, sub_end FROM users WHERE user_id = ?`, userID).
		Scan(&premium, &subEnd)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query premium for %d: %w", userID, err)
	}
	if !premium {
		return false, nil
	}
	if subEnd.Valid {
		end, err := s.decodeTime(subEnd.String)
		if err != nil {
			return false, fmt.Errorf("bad sub_end for %d: %w", userID, err)
		}
		if !end.After(now) {
			return false, nil
		}
	}
	return true, nil
}

// SetPremium activates premium until the given moment.
func (s *Store) SetPremium(ctx context.Context, userID int64, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_premium = 1, sub_end = ? WHERE user_id = ?`,
		s.encodeTime(until), userID)
	if err != nil {
		return fmt.Errorf("set premium for %d: %w", userID, err)
	}
	return nil
}

// SubscriptionInfo returns the user's subscription state, or nil if the user
// is unknown.
func (s *Store) SubscriptionInfo(ctx context.Context, userID int64) (*Subscription, error) {
	var premium bool
	var subEnd sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT is_premium, sub_end, created_at FROM users WHERE user_id = ?`, userID).
		Scan(&premium, &subEnd, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription for %d: %w", userID, err)
	}
	sub := &Subscription{Premium: premium}
	if subEnd.Valid {
		end, err := s.decodeTime(subEnd.String)
		if err != nil {
			return nil, fmt.Errorf("bad sub_end for %d: %w", userID, err)
		}
		sub.SubEnd = &end
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		sub.CreatedAt = t.In(s.loc)
	}
	return sub, nil
}

// PremiumUsers returns the ids of users whose subscription is still active.
func (s *Store) PremiumUsers(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM users WHERE is_premium = 1 AND sub_end > ?`,
		s.encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("query premium users: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ExpireSubscriptions flips every premium subscription whose expiry has
// passed to non-premium, in one batch, and returns the affected user ids.
// Running it again before a new expiry yields nothing: the downgrade is
// idempotent.
func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM users WHERE is_premium = 1 AND sub_end <= ?`,
		s.encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("query expired subscriptions: %w", err)
	}
	expired, err := scanIDs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(expired)), ",")
	args := make([]any, len(expired))
	for i, id := range expired {
		args[i] = id
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET is_premium = 0 WHERE user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("downgrade expired subscriptions: %w", err)
	}
	return expired, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

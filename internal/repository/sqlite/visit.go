package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/treebio/internal/model"
)

// RecordVisit appends a profile visit. VisitedAt defaults to now.
func (db *DB) RecordVisit(ctx context.Context, visit *model.ProfileVisit) error {
	if visit.ID == "" {
		visit.ID = xid.New().String()
	}
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = time.Now()
	}
	visit.VisitedAt = visit.VisitedAt.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profile_visits (id, user_id, visited_at, referrer, user_agent, visitor_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		visit.ID,
		visit.UserID,
		visit.VisitedAt,
		visit.Referrer,
		visit.UserAgent,
		visit.VisitorHash,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording visit for %s: %w", visit.UserID, err)
	}
	return nil
}

// VisitTimesSince returns the timestamps of the user's visits at or after
// since, oldest first. All timestamps are stored in UTC, so the text
// comparison SQLite does on DATETIME columns orders them correctly.
func (db *DB) VisitTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT visited_at FROM profile_visits
		 WHERE user_id = ? AND visited_at >= ?
		 ORDER BY visited_at ASC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visits for %s: %w", userID, err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("sqlite: scanning visit row: %w", err)
		}
		times = append(times, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating visits: %w", err)
	}
	return times, nil
}

func (db *DB) CountVisits(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profile_visits WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting visits for %s: %w", userID, err)
	}
	return n, nil
}

// LinkTotals returns how many links the user has and the sum of their clicks.
func (db *DB) LinkTotals(ctx context.Context, userID string) (links int64, clicks int64, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(click_count), 0) FROM links WHERE user_id = ?`, userID,
	).Scan(&links, &clicks)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: totalling links for %s: %w", userID, err)
	}
	return links, clicks, nil
}

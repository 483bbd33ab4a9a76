package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/treebio/internal/model"
)

func (db *DB) RecordVisit(ctx context.Context, visit *model.ProfileVisit) error {
	if visit.ID == "" {
		visit.ID = xid.New().String()
	}
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = time.Now()
	}
	visit.VisitedAt = visit.VisitedAt.UTC()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO profile_visits (id, user_id, visited_at, referrer, user_agent, visitor_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		visit.ID, visit.UserID, visit.VisitedAt, visit.Referrer, visit.UserAgent, visit.VisitorHash,
	)
	if err != nil {
		return fmt.Errorf("postgres: recording visit for %s: %w", visit.UserID, err)
	}
	return nil
}

func (db *DB) VisitTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT visited_at FROM profile_visits
		 WHERE user_id = $1 AND visited_at >= $2
		 ORDER BY visited_at ASC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing visits for %s: %w", userID, err)
	}
	times, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (time.Time, error) {
		var t time.Time
		err := row.Scan(&t)
		return t.UTC(), err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning visits: %w", err)
	}
	return times, nil
}

func (db *DB) CountVisits(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM profile_visits WHERE user_id = $1`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: counting visits for %s: %w", userID, err)
	}
	return n, nil
}

func (db *DB) LinkTotals(ctx context.Context, userID string) (links int64, clicks int64, err error) {
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(click_count), 0)::BIGINT FROM links WHERE user_id = $1`, userID,
	).Scan(&links, &clicks)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: totalling links for %s: %w", userID, err)
	}
	return links, clicks, nil
}

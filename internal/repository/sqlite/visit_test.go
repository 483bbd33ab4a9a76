package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treebio/internal/model"
)

func TestRecordVisitAndVisitTimesSince(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "github:1", "Ada")

	now := time.Now().UTC()
	for _, at := range []time.Time{
		now.Add(-48 * time.Hour),
		now.Add(-1 * time.Hour),
		now.Add(-40 * 24 * time.Hour),
	} {
		require.NoError(t, db.RecordVisit(ctx, &model.ProfileVisit{UserID: user.ID, VisitedAt: at}))
	}

	times, err := db.VisitTimesSince(ctx, user.ID, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Before(times[1]), "visits come back oldest first")
	assert.WithinDuration(t, now.Add(-48*time.Hour), times[0], time.Second)

	total, err := db.CountVisits(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestRecordVisit_DefaultsTimestamp(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "github:1", "Ada")

	visit := &model.ProfileVisit{UserID: user.ID, Referrer: "https://t.co", VisitorHash: "abc"}
	require.NoError(t, db.RecordVisit(context.Background(), visit))

	assert.NotEmpty(t, visit.ID)
	assert.WithinDuration(t, time.Now(), visit.VisitedAt, 5*time.Second)
}

func TestLinkTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "github:1", "Ada")

	links, clicks, err := db.LinkTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, links)
	assert.Zero(t, clicks)

	a := createTestLink(t, db, user.ID, "a")
	createTestLink(t, db, user.ID, "b")
	for range 3 {
		_, err := db.IncrementClicks(ctx, a.ID)
		require.NoError(t, err)
	}

	links, clicks, err = db.LinkTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), links)
	assert.Equal(t, int64(3), clicks)
}

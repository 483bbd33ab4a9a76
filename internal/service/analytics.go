package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/repository"
)

const (
	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 365

	visitWriteTimeout = 5 * time.Second
	dayLayout         = "2006-01-02"
)

// VisitInfo is what the profile page knows about a visitor. IP is hashed
// before it leaves this package.
type VisitInfo struct {
	Referrer  string
	UserAgent string
	IP        string
}

// AnalyticsService records profile visits and aggregates them for the
// dashboard.
type AnalyticsService struct {
	repo    repository.VisitRepository
	logger  *slog.Logger
	hashKey []byte
	now     func() time.Time

	inflight sync.WaitGroup
}

// NewAnalyticsService creates the service. hashKey keys the visitor hash; any
// length is accepted.
func NewAnalyticsService(repo repository.VisitRepository, hashKey string, logger *slog.Logger) *AnalyticsService {
	key := blake2b.Sum256([]byte(hashKey))
	return &AnalyticsService{
		repo:    repo,
		logger:  logger,
		hashKey: key[:],
		now:     time.Now,
	}
}

// RecordVisitAsync writes the visit in the background. The write is detached
// from the request context, bounded by its own timeout, and never reported to
// the caller: a failure is logged at warn level and dropped.
func (s *AnalyticsService) RecordVisitAsync(ctx context.Context, userID string, info VisitInfo) {
	visit := &model.ProfileVisit{
		UserID:      userID,
		VisitedAt:   s.now().UTC(),
		Referrer:    info.Referrer,
		UserAgent:   info.UserAgent,
		VisitorHash: s.visitorHash(info.IP),
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), visitWriteTimeout)
		defer cancel()

		if err := s.repo.RecordVisit(writeCtx, visit); err != nil {
			s.logger.Warn("recording profile visit failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every pending visit write has finished or ctx is done.
func (s *AnalyticsService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("service/analytics: waiting for visit writes: %w", ctx.Err())
	}
}

// DailyVisits returns one entry per UTC day for the last days days, oldest
// first, ending today. Days without visits are present with a zero count.
// days <= 0 means DefaultAnalyticsDays; larger than MaxAnalyticsDays is
// clamped.
func (s *AnalyticsService) DailyVisits(ctx context.Context, userID string, days int) ([]model.DailyCount, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	days = clampDays(days)

	now := s.now().UTC()
	start := startOfDay(now).AddDate(0, 0, -(days - 1))

	times, err := s.repo.VisitTimesSince(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("service/analytics: loading visits for %s: %w", userID, err)
	}
	return bucketDaily(times, start, days), nil
}

// Summary totals links, clicks and visits for the dashboard cards.
func (s *AnalyticsService) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	links, clicks, err := s.repo.LinkTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/analytics: totalling links for %s: %w", userID, err)
	}
	visits, err := s.repo.CountVisits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/analytics: counting visits for %s: %w", userID, err)
	}
	return &model.Summary{TotalLinks: links, TotalClicks: clicks, TotalVisits: visits}, nil
}

func (s *AnalyticsService) visitorHash(ip string) string {
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(s.hashKey)
	if err != nil {
		// only possible with a key longer than 64 bytes
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func clampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultAnalyticsDays
	case days > MaxAnalyticsDays:
		return MaxAnalyticsDays
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// bucketDaily counts times per UTC day across [start, start+days). Times
// outside the window are ignored.
func bucketDaily(times []time.Time, start time.Time, days int) []model.DailyCount {
	out := make([]model.DailyCount, days)
	index := make(map[string]int, days)
	for i := range days {
		date := start.AddDate(0, 0, i).Format(dayLayout)
		out[i] = model.DailyCount{Date: date}
		index[date] = i
	}
	for _, t := range times {
		if i, ok := index[t.UTC().Format(dayLayout)]; ok {
			out[i].Count++
		}
	}
	return out
}

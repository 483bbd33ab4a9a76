package model

import "time"

// ProfileVisit is one view of a public profile page. Visits are append-only.
//
// VisitorHash is a keyed hash of the visitor's IP; the raw address is never
// stored.
type ProfileVisit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	VisitedAt   time.Time `json:"visitedAt"`
	Referrer    string    `json:"referrer"`
	UserAgent   string    `json:"userAgent"`
	VisitorHash string    `json:"-"`
}

// DailyCount is one bucket of the daily visit chart.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}

// Summary feeds the dashboard stat cards.
type Summary struct {
	TotalLinks  int64 `json:"totalLinks"`
	TotalClicks int64 `json:"totalClicks"`
	TotalVisits int64 `json:"totalVisits"`
}

package model

import "time"

// Link is one entry on a user's profile page.
//
// UserID is the owner. It is excluded from JSON so list responses carry no
// owner linkage. ClickCount starts at 0 and is only ever incremented.
type Link struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description *string   `json:"description"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

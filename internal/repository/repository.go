// Package repository declares the storage contracts the service layer
// depends on. Implementations live in repository/sqlite and
// repository/postgres.
//
// Every method translates "no such row" into apperror.ErrNotFound and a
// duplicate username into apperror.ErrUsernameTaken, so services never see
// driver-specific errors.
package repository

import (
	"context"
	"time"

	"github.com/sakif/treebio/internal/model"
)

type UserRepository interface {
	// Upsert inserts the user or, if ExternalID already exists, refreshes
	// the identity-provider fields. On return user holds the stored row.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetUsername(ctx context.Context, userID, username string) error
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
}

type LinkRepository interface {
	CreateLink(ctx context.Context, link *model.Link) error
	ListLinks(ctx context.Context, userID string) ([]model.Link, error)
	// LinkOwner returns the owning user id, used to authorise edits.
	LinkOwner(ctx context.Context, id string) (string, error)
	// UpdateLink and DeleteLink filter on both id and owner.
	UpdateLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, id, userID string) error
	IncrementClicks(ctx context.Context, id string) (*model.Link, error)
}

type SocialLinkRepository interface {
	CreateSocialLink(ctx context.Context, link *model.SocialLink) error
	ListSocialLinks(ctx context.Context, userID string) ([]model.SocialLink, error)
	SocialLinkOwner(ctx context.Context, id string) (string, error)
	UpdateSocialLink(ctx context.Context, link *model.SocialLink) error
	DeleteSocialLink(ctx context.Context, id, userID string) error
}

type VisitRepository interface {
	RecordVisit(ctx context.Context, visit *model.ProfileVisit) error
	// VisitTimesSince returns visit timestamps at or after since, ascending.
	VisitTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	CountVisits(ctx context.Context, userID string) (int64, error)
	LinkTotals(ctx context.Context, userID string) (links int64, clicks int64, err error)
}

// Store is the full storage surface; both backends implement it.
type Store interface {
	UserRepository
	LinkRepository
	SocialLinkRepository
	VisitRepository
	Close() error
}

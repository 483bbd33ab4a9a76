package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

// testLogger only prints errors so test output stays readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore is an in-memory implementation of every repository interface.
// Set the *Err fields to simulate storage failures.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[string]*model.User
	links   map[string]*model.Link
	socials map[string]*model.SocialLink
	visits  []model.ProfileVisit

	upsertErr error
	existsErr error
	visitErr  error

	existsCalls int
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*model.User),
		links:   make(map[string]*model.Link),
		socials: make(map[string]*model.SocialLink),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// addUser stores a user directly and returns its id.
func (f *fakeStore) addUser(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: f.id("user"), ExternalID: "ext-" + username, FirstName: username}
	if username != "" {
		name := username
		u.Username = &name
	}
	f.users[u.ID] = u
	return u.ID
}

func (f *fakeStore) Upsert(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.ExternalID == user.ExternalID {
			existing.FirstName = user.FirstName
			existing.LastName = user.LastName
			existing.Email = user.Email
			existing.AvatarURL = user.AvatarURL
			existing.UpdatedAt = time.Now()
			*user = *existing
			return nil
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username != nil && *u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.usernameTakenLocked(username, ""), nil
}

func (f *fakeStore) usernameTakenLocked(username, exceptID string) bool {
	for id, u := range f.users {
		if id != exceptID && u.Username != nil && *u.Username == username {
			return true
		}
	}
	return false
}

func (f *fakeStore) SetUsername(_ context.Context, userID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if f.usernameTakenLocked(username, userID) {
		return apperror.UsernameTaken(username)
	}
	name := username
	u.Username = &name
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	if update.Username != nil {
		if f.usernameTakenLocked(*update.Username, userID) {
			return nil, apperror.UsernameTaken(*update.Username)
		}
		name := *update.Username
		u.Username = &name
	}
	u.FirstName = update.FirstName
	u.LastName = update.LastName
	u.Bio = update.Bio
	u.AvatarURL = update.AvatarURL
	copied := *u
	return &copied, nil
}

func (f *fakeStore) CreateLink(_ context.Context, link *model.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	link.ID = f.id("link")
	link.CreatedAt = time.Now()
	stored := *link
	f.links[link.ID] = &stored
	return nil
}

func (f *fakeStore) ListLinks(_ context.Context, userID string) ([]model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Link{}
	for _, l := range f.links {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) LinkOwner(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return "", apperror.NotFound("link", id)
	}
	return l.UserID, nil
}

func (f *fakeStore) UpdateLink(_ context.Context, link *model.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[link.ID]
	if !ok || l.UserID != link.UserID {
		return apperror.NotFound("link", link.ID)
	}
	l.Title, l.URL, l.Description = link.Title, link.URL, link.Description
	*link = *l
	return nil
}

func (f *fakeStore) DeleteLink(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok || l.UserID != userID {
		return apperror.NotFound("link", id)
	}
	delete(f.links, id)
	return nil
}

func (f *fakeStore) IncrementClicks(_ context.Context, id string) (*model.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return nil, apperror.NotFound("link", id)
	}
	l.ClickCount++
	copied := *l
	return &copied, nil
}

func (f *fakeStore) CreateSocialLink(_ context.Context, link *model.SocialLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	link.ID = f.id("social")
	link.CreatedAt = time.Now()
	stored := *link
	f.socials[link.ID] = &stored
	return nil
}

func (f *fakeStore) ListSocialLinks(_ context.Context, userID string) ([]model.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SocialLink{}
	for _, l := range f.socials {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) SocialLinkOwner(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.socials[id]
	if !ok {
		return "", apperror.NotFound("social link", id)
	}
	return l.UserID, nil
}

func (f *fakeStore) UpdateSocialLink(_ context.Context, link *model.SocialLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.socials[link.ID]
	if !ok || l.UserID != link.UserID {
		return apperror.NotFound("social link", link.ID)
	}
	l.Platform, l.URL = link.Platform, link.URL
	*link = *l
	return nil
}

func (f *fakeStore) DeleteSocialLink(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.socials[id]
	if !ok || l.UserID != userID {
		return apperror.NotFound("social link", id)
	}
	delete(f.socials, id)
	return nil
}

func (f *fakeStore) RecordVisit(_ context.Context, visit *model.ProfileVisit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visitErr != nil {
		return f.visitErr
	}
	f.visits = append(f.visits, *visit)
	return nil
}

func (f *fakeStore) VisitTimesSince(_ context.Context, userID string, since time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, v := range f.visits {
		if v.UserID == userID && !v.VisitedAt.Before(since) {
			out = append(out, v.VisitedAt)
		}
	}
	return out, nil
}

func (f *fakeStore) CountVisits(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.visits {
		if v.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LinkTotals(_ context.Context, userID string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var links, clicks int64
	for _, l := range f.links {
		if l.UserID == userID {
			links++
			clicks += l.ClickCount
		}
	}
	return links, clicks, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) visitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/repository"
)

// ProfileInput is the editable part of a profile. An empty Username keeps
// the current one.
type ProfileInput struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName"  validate:"max=50"`
	Username  string `json:"username"  validate:"omitempty,min=3,max=30,username,unreserved"`
	Bio       string `json:"bio"       validate:"max=500"`
	ImageURL  string `json:"imageUrl"  validate:"omitempty,weburl"`
}

// ProfileService owns usernames and profile fields and assembles the public
// profile page.
type ProfileService struct {
	users   repository.UserRepository
	links   repository.LinkRepository
	socials repository.SocialLinkRepository
	logger  *slog.Logger
	intN    func(int) int
}

func NewProfileService(
	users repository.UserRepository,
	links repository.LinkRepository,
	socials repository.SocialLinkRepository,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:   users,
		links:   links,
		socials: socials,
		logger:  logger,
		intN:    defaultIntN,
	}
}

// CheckAvailability reports whether username is free. An empty username is
// never available and gets no suggestions. A malformed one is a validation
// error. A taken one comes back with up to three free alternatives.
//
// The answer is advisory: only ClaimUsername's write is authoritative.
func (s *ProfileService) CheckAvailability(ctx context.Context, username string) (*Availability, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return &Availability{Available: false, Suggestions: []string{}}, nil
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/profile: checking username %q: %w", username, err)
	}
	if !taken {
		return &Availability{Available: true, Suggestions: []string{}}, nil
	}

	suggestions, err := s.suggestUsernames(ctx, username)
	if err != nil {
		return nil, err
	}
	return &Availability{Available: false, Suggestions: suggestions}, nil
}

// ClaimUsername sets the caller's username. There is no existence pre-check:
// storage enforces uniqueness, and a concurrent claimer who loses gets
// apperror.ErrUsernameTaken.
func (s *ProfileService) ClaimUsername(ctx context.Context, userID, username string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return err
	}

	if err := s.users.SetUsername(ctx, userID, username); err != nil {
		if errors.Is(err, apperror.ErrUsernameTaken) {
			return err
		}
		return fmt.Errorf("service/profile: claiming username for %s: %w", userID, err)
	}

	s.logger.Info("username claimed", slog.String("userID", userID), slog.String("username", username))
	return nil
}

// Profile returns the caller's own profile with links and social links.
func (s *ProfileService) Profile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching user %s: %w", userID, err)
	}
	return s.assemble(ctx, user)
}

// UpdateProfile validates and saves the profile fields.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Bio = strings.TrimSpace(in.Bio)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	update := model.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		AvatarURL: in.ImageURL,
	}
	if in.Username != "" {
		update.Username = &in.Username
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, apperror.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: updating profile for %s: %w", userID, err)
	}
	return user, nil
}

// PublicProfile loads everything the page at /{username} renders.
func (s *ProfileService) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NotFound("profile", username)
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading profile %q: %w", username, err)
	}
	return s.assemble(ctx, user)
}

func (s *ProfileService) assemble(ctx context.Context, user *model.User) (*model.PublicProfile, error) {
	links, err := s.links.ListLinks(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing links for %s: %w", user.ID, err)
	}
	socials, err := s.socials.ListSocialLinks(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing social links for %s: %w", user.ID, err)
	}
	return &model.PublicProfile{User: user, Links: links, SocialLinks: socials}, nil
}

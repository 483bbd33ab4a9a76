package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/repository"
)

// IdentityService turns an authenticated external identity into a local
// user and a session token.
//
//	AuthHandler → IdentityService → UserRepository
//	                              ↘ TokenService
type IdentityService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewIdentityService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, logger: logger}
}

// LoginResult bundles the user and the issued JWT so the handler can set the
// cookie and redirect in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// Onboard makes sure a user exists for the identity. It is idempotent: the
// first call creates the user, later calls refresh name, email and avatar
// from the identity provider. A storage failure is logged and returned; the
// caller decides whether to retry.
func (s *IdentityService) Onboard(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	if identity == nil || identity.ExternalID == "" {
		return nil, apperror.Unauthorized()
	}

	user := &model.User{
		ExternalID: identity.ExternalID,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.Email,
		AvatarURL:  identity.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Error("onboarding user failed",
			slog.String("externalID", identity.ExternalID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/identity: onboarding %s: %w", identity.ExternalID, err)
	}

	s.logger.Info("user onboarded",
		slog.String("userID", user.ID),
		slog.Bool("hasUsername", user.HasUsername()),
	)
	return user, nil
}

// Login onboards the identity and issues a session token for the user.
func (s *IdentityService) Login(ctx context.Context, identity *auth.Identity) (*LoginResult, error) {
	user, err := s.Onboard(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: generating token for user %s: %w", user.ID, err)
	}
	return &LoginResult{User: user, Token: token}, nil
}

// CurrentUser resolves the session subject to a user.
func (s *IdentityService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// SessionTTL is how long an issued token stays valid; the session cookie
// uses the same lifetime.
func (s *IdentityService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

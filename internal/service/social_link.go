package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/repository"
)

type SocialLinkInput struct {
	Platform string `json:"platform" validate:"required,platform"`
	URL      string `json:"url"      validate:"required,sociallink"`
}

// SocialLinkService mirrors LinkService for platform-tagged links. Edits
// and deletes both go through the same ownership check.
type SocialLinkService struct {
	repo   repository.SocialLinkRepository
	logger *slog.Logger
}

func NewSocialLinkService(repo repository.SocialLinkRepository, logger *slog.Logger) *SocialLinkService {
	return &SocialLinkService{repo: repo, logger: logger}
}

func (s *SocialLinkService) Create(ctx context.Context, userID string, in SocialLinkInput) (*model.SocialLink, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	platform, err := parseSocialLinkInput(&in)
	if err != nil {
		return nil, err
	}

	link := &model.SocialLink{UserID: userID, Platform: platform, URL: in.URL}
	if err := s.repo.CreateSocialLink(ctx, link); err != nil {
		return nil, fmt.Errorf("service/social: creating social link: %w", err)
	}
	s.logger.Info("social link created",
		slog.String("id", link.ID),
		slog.String("platform", string(platform)),
	)
	return link, nil
}

func (s *SocialLinkService) List(ctx context.Context, userID string) ([]model.SocialLink, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	links, err := s.repo.ListSocialLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/social: listing social links: %w", err)
	}
	return links, nil
}

func (s *SocialLinkService) Update(ctx context.Context, userID, id string, in SocialLinkInput) (*model.SocialLink, error) {
	if err := s.authorize(ctx, userID, id); err != nil {
		return nil, err
	}
	platform, err := parseSocialLinkInput(&in)
	if err != nil {
		return nil, err
	}

	link := &model.SocialLink{ID: id, UserID: userID, Platform: platform, URL: in.URL}
	if err := s.repo.UpdateSocialLink(ctx, link); err != nil {
		return nil, fmt.Errorf("service/social: updating social link %s: %w", id, err)
	}
	return link, nil
}

func (s *SocialLinkService) Delete(ctx context.Context, userID, id string) error {
	if err := s.authorize(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSocialLink(ctx, id, userID); err != nil {
		return fmt.Errorf("service/social: deleting social link %s: %w", id, err)
	}
	return nil
}

func (s *SocialLinkService) authorize(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}
	owner, err := s.repo.SocialLinkOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("service/social: looking up social link %s: %w", id, err)
	}
	if owner != userID {
		s.logger.Warn("social link ownership check failed", slog.String("id", id), slog.String("userID", userID))
		return apperror.Forbidden("you do not own this social link")
	}
	return nil
}

func parseSocialLinkInput(in *SocialLinkInput) (model.Platform, error) {
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.URL = strings.TrimSpace(in.URL)
	if err := validateStruct(in); err != nil {
		return "", err
	}
	return model.Platform(in.Platform), nil
}

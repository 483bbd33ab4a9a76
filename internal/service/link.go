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

// LinkInput is what a user submits when adding or editing a link.
type LinkInput struct {
	Title       string `json:"title"       validate:"required,max=100"`
	URL         string `json:"url"         validate:"required,weburl"`
	Description string `json:"description" validate:"max=200"`
}

func (in *LinkInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *LinkInput) description() *string {
	if in.Description == "" {
		return nil
	}
	d := in.Description
	return &d
}

// LinkService is owner-scoped CRUD over a user's links.
type LinkService struct {
	repo   repository.LinkRepository
	logger *slog.Logger
}

func NewLinkService(repo repository.LinkRepository, logger *slog.Logger) *LinkService {
	return &LinkService{repo: repo, logger: logger}
}

// Create validates the input before touching storage; the new link starts
// with zero clicks and belongs to userID.
func (s *LinkService) Create(ctx context.Context, userID string, in LinkInput) (*model.Link, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	link := &model.Link{
		UserID:      userID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.description(),
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("service/link: creating link: %w", err)
	}

	s.logger.Info("link created", slog.String("id", link.ID), slog.String("userID", userID))
	return link, nil
}

func (s *LinkService) List(ctx context.Context, userID string) ([]model.Link, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	links, err := s.repo.ListLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/link: listing links: %w", err)
	}
	return links, nil
}

func (s *LinkService) Update(ctx context.Context, userID, id string, in LinkInput) (*model.Link, error) {
	if err := s.authorize(ctx, userID, id); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	link := &model.Link{
		ID:          id,
		UserID:      userID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.description(),
	}
	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("service/link: updating link %s: %w", id, err)
	}
	return link, nil
}

func (s *LinkService) Delete(ctx context.Context, userID, id string) error {
	if err := s.authorize(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteLink(ctx, id, userID); err != nil {
		return fmt.Errorf("service/link: deleting link %s: %w", id, err)
	}
	s.logger.Info("link deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// RecordClick counts a visitor following the link and returns it so the
// caller can redirect to its URL.
func (s *LinkService) RecordClick(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.repo.IncrementClicks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/link: recording click on %s: %w", id, err)
	}
	return link, nil
}

// authorize checks that userID owns the link. Unknown ids are NotFound,
// someone else's link is Forbidden.
func (s *LinkService) authorize(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}
	owner, err := s.repo.LinkOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("service/link: looking up link %s: %w", id, err)
	}
	if owner != userID {
		s.logger.Warn("link ownership check failed", slog.String("id", id), slog.String("userID", userID))
		return apperror.Forbidden("you do not own this link")
	}
	return nil
}

package blog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/internal/shared"
)

// ErrNotPublished hides draft posts from the public surface.
var ErrNotPublished = errors.New("blog: not published")

// Service implements blog operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateInput is the payload for creating a post.
type CreateInput struct {
	Title      string   `json:"title" validate:"required,min=3,max=200"`
	Excerpt    string   `json:"excerpt" validate:"omitempty,max=500"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"coverImage" validate:"omitempty,url"`
	Tags       []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=50"`
	Published  bool     `json:"published"`
}

// Create registers a new post attributed to the calling admin.
func (s *Service) Create(ctx context.Context, authorID, authorName string, in CreateInput) (*Post, error) {
	p := &Post{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(in.Title),
		Slug:       shared.Slugify(in.Title),
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		CoverImage: in.CoverImage,
		Tags:       normalizeTags(in.Tags),
		AuthorID:   authorID,
		AuthorName: authorName,
		Published:  in.Published,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateInput carries editable post fields. Nil means keep. A title change
// re-derives the slug.
type UpdateInput struct {
	Title      *string   `json:"title" validate:"omitempty,min=3,max=200"`
	Excerpt    *string   `json:"excerpt" validate:"omitempty,max=500"`
	Content    *string   `json:"content" validate:"omitempty,min=1"`
	CoverImage *string   `json:"coverImage" validate:"omitempty,url"`
	Tags       *[]string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=50"`
}

// Update applies edits to a post.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Post, error) {
	fields := Update{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		CoverImage: in.CoverImage,
	}
	if in.Title != nil {
		slug := shared.Slugify(*in.Title)
		fields.Slug = &slug
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		fields.Tags = &tags
	}
	return s.repo.Update(ctx, id, fields)
}

// SetPublished flips post visibility.
func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	return s.repo.SetPublished(ctx, id, published)
}

// Delete soft-deletes a post.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// Get loads any post by id for admin surfaces.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.repo.FindByID(ctx, id)
}

// Read serves the public article page and counts the view. A failed counter
// update never blocks the read.
func (s *Service) Read(ctx context.Context, slug string) (*Post, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.Published {
		return nil, ErrNotPublished
	}
	if err := s.repo.IncrementViews(ctx, p.ID); err != nil {
		s.logger.Error("increment post views", slog.Any("error", err))
	} else {
		p.Views++
	}
	return p, nil
}

// List pages through posts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	return s.repo.List(ctx, filter)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		cleaned := strings.ToLower(strings.TrimSpace(tag))
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

package course

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/internal/shared"
)

// ErrNotPublished hides unpublished courses from the public surface. The
// handler answers 404, not 403; existence itself is not public.
var ErrNotPublished = errors.New("course: not published")

// Service implements catalog operations. Reads on the public surface go
// through the cache; every write bumps the catalog version.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// CreateInput is the payload for creating a course.
type CreateInput struct {
	Title         string       `json:"title" validate:"required,min=3,max=200"`
	Description   string       `json:"description" validate:"omitempty,max=10000"`
	Thumbnail     string       `json:"thumbnail" validate:"omitempty,url"`
	Price         int64        `json:"price" validate:"gte=0"`
	DiscountPrice int64        `json:"discountPrice" validate:"gte=0"`
	Instructors   []Instructor `json:"instructors" validate:"omitempty,dive"`
	Published     bool         `json:"published"`
}

// Create registers a new course with a slug derived from the title.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Course, error) {
	c := &Course{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Slug:          shared.Slugify(in.Title),
		Description:   in.Description,
		Thumbnail:     in.Thumbnail,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Instructors:   in.Instructors,
		Published:     in.Published,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.bump(ctx)
	return c, nil
}

// UpdateInput carries editable course fields. Nil means keep. A title
// change re-derives the slug.
type UpdateInput struct {
	Title         *string       `json:"title" validate:"omitempty,min=3,max=200"`
	Description   *string       `json:"description" validate:"omitempty,max=10000"`
	Thumbnail     *string       `json:"thumbnail" validate:"omitempty,url"`
	Price         *int64        `json:"price" validate:"omitempty,gte=0"`
	DiscountPrice *int64        `json:"discountPrice" validate:"omitempty,gte=0"`
	Instructors   *[]Instructor `json:"instructors" validate:"omitempty,dive"`
}

// Update applies edits to a course.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Course, error) {
	fields := Update{
		Title:         in.Title,
		Description:   in.Description,
		Thumbnail:     in.Thumbnail,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Instructors:   in.Instructors,
	}
	if in.Title != nil {
		slug := shared.Slugify(*in.Title)
		fields.Slug = &slug
	}
	c, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return c, nil
}

// SetPublished flips course visibility on the public catalog.
func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// Delete soft-deletes a course.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// Get loads a course by id without touching the cache; admin surfaces need
// the current record, not a possibly stale one.
func (s *Service) Get(ctx context.Context, id string) (*Course, error) {
	return s.repo.FindByID(ctx, id)
}

// GetBySlug serves the public course page through the cache. Unpublished
// courses are invisible here.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Course, error) {
	key, err := s.cache.BuildKey(ctx, keyCatalogSlug(slug))
	if err != nil {
		s.logger.Error("catalog cache key", slog.Any("error", err))
		return s.loadPublishedBySlug(ctx, slug)
	}
	var c Course
	err = s.cache.FetchJSON(ctx, key, &c, func(ctx context.Context) (interface{}, error) {
		return s.loadPublishedBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListResult is the cached shape of one catalog page.
type ListResult struct {
	Courses []Course `json:"courses"`
	Total   int      `json:"total"`
}

// List pages through the catalog. Public listings are cached; admin
// listings (PublishedOnly false) bypass the cache.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	load := func(ctx context.Context) (interface{}, error) {
		courses, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &ListResult{Courses: courses, Total: total}, nil
	}

	if !filter.PublishedOnly {
		raw, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return raw.(*ListResult), nil
	}

	key, err := s.cache.BuildKey(ctx, keyCatalogList(true, filter.Search, filter.Page, filter.Limit))
	if err != nil {
		s.logger.Error("catalog cache key", slog.Any("error", err))
		raw, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return raw.(*ListResult), nil
	}
	var result ListResult
	if err := s.cache.FetchJSON(ctx, key, &result, load); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) loadPublishedBySlug(ctx context.Context, slug string) (*Course, error) {
	c, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.Published {
		return nil, ErrNotPublished
	}
	return c, nil
}

func (s *Service) bump(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Error("catalog cache bump", slog.Any("error", err))
	}
}

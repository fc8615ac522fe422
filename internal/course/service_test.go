package course_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/course"
	"github.com/learnhub/learnhub/internal/shared"
	_ "github.com/learnhub/learnhub/testing"
)

// memRepo is an in-memory course.Repository with a query counter so tests
// can observe cache hits.
type memRepo struct {
	mu      sync.Mutex
	courses map[string]*course.Course
	reads   int
}

func newMemRepo() *memRepo {
	return &memRepo{courses: make(map[string]*course.Course)}
}

func (m *memRepo) Create(_ context.Context, c *course.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.courses {
		if !existing.IsDeleted && existing.Slug == c.Slug {
			return shared.ErrDuplicate
		}
	}
	clone := *c
	m.courses[c.ID] = &clone
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*course.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok && !c.IsDeleted {
		clone := *c
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) FindBySlug(_ context.Context, slug string) (*course.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	for _, c := range m.courses {
		if !c.IsDeleted && c.Slug == slug {
			clone := *c
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Update(ctx context.Context, id string, fields course.Update) (*course.Course, error) {
	m.mu.Lock()
	c, ok := m.courses[id]
	if !ok || c.IsDeleted {
		m.mu.Unlock()
		return nil, shared.ErrNotFound
	}
	if fields.Title != nil {
		c.Title = *fields.Title
	}
	if fields.Slug != nil {
		c.Slug = *fields.Slug
	}
	if fields.Price != nil {
		c.Price = *fields.Price
	}
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *memRepo) SetPublished(_ context.Context, id string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.IsDeleted {
		return shared.ErrNotFound
	}
	c.Published = published
	return nil
}

func (m *memRepo) AddEnrollment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.IsDeleted {
		return shared.ErrNotFound
	}
	c.Stats.Enrolled++
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.IsDeleted {
		return shared.ErrNotFound
	}
	c.IsDeleted = true
	return nil
}

func (m *memRepo) List(_ context.Context, filter course.ListFilter) ([]course.Course, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := make([]course.Course, 0, len(m.courses))
	for _, c := range m.courses {
		if c.IsDeleted {
			continue
		}
		if filter.PublishedOnly && !c.Published {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memRepo) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

var _ course.Repository = (*memRepo)(nil)

func newService(t *testing.T) (*course.Service, *memRepo) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemRepo()
	return course.NewService(repo, course.NewCache(client, time.Minute), nil), repo
}

func TestCreateDerivesSlug(t *testing.T) {
	service, _ := newService(t)
	c, err := service.Create(context.Background(), course.CreateInput{
		Title: "Go Fundamentals", Price: 4500, Published: true,
	})
	require.NoError(t, err)
	require.Equal(t, "go-fundamentals", c.Slug)
}

func TestCreateDuplicateSlug(t *testing.T) {
	service, _ := newService(t)
	_, err := service.Create(context.Background(), course.CreateInput{Title: "Go Fundamentals"})
	require.NoError(t, err)
	_, err = service.Create(context.Background(), course.CreateInput{Title: "Go  Fundamentals!"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestGetBySlugServesFromCache(t *testing.T) {
	service, repo := newService(t)
	_, err := service.Create(context.Background(), course.CreateInput{
		Title: "Go Fundamentals", Published: true,
	})
	require.NoError(t, err)
	before := repo.readCount()

	first, err := service.GetBySlug(context.Background(), "go-fundamentals")
	require.NoError(t, err)
	second, err := service.GetBySlug(context.Background(), "go-fundamentals")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	// Second read must come from Redis, not the repository.
	require.Equal(t, before+1, repo.readCount())
}

func TestGetBySlugHidesUnpublished(t *testing.T) {
	service, _ := newService(t)
	_, err := service.Create(context.Background(), course.CreateInput{Title: "Draft Course"})
	require.NoError(t, err)

	_, err = service.GetBySlug(context.Background(), "draft-course")
	require.ErrorIs(t, err, course.ErrNotPublished)
}

func TestPublishInvalidatesCache(t *testing.T) {
	service, _ := newService(t)
	c, err := service.Create(context.Background(), course.CreateInput{
		Title: "Go Fundamentals", Published: true,
	})
	require.NoError(t, err)

	result, err := service.List(context.Background(), course.ListFilter{PublishedOnly: true, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Courses, 1)

	require.NoError(t, service.SetPublished(context.Background(), c.ID, false))

	result, err = service.List(context.Background(), course.ListFilter{PublishedOnly: true, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, result.Courses)
}

func TestUpdateTitleRederivesSlug(t *testing.T) {
	service, _ := newService(t)
	c, err := service.Create(context.Background(), course.CreateInput{Title: "Old Name"})
	require.NoError(t, err)

	newTitle := "New Name"
	updated, err := service.Update(context.Background(), c.ID, course.UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, "new-name", updated.Slug)
}

func TestDeleteRemovesFromCatalog(t *testing.T) {
	service, _ := newService(t)
	c, err := service.Create(context.Background(), course.CreateInput{
		Title: "Go Fundamentals", Published: true,
	})
	require.NoError(t, err)
	require.NoError(t, service.Delete(context.Background(), c.ID))

	_, err = service.GetBySlug(context.Background(), "go-fundamentals")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

package blog_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/blog"
	"github.com/learnhub/learnhub/internal/shared"
	_ "github.com/learnhub/learnhub/testing"
)

type memRepo struct {
	mu    sync.Mutex
	posts map[string]*blog.Post
}

func newMemRepo() *memRepo {
	return &memRepo{posts: make(map[string]*blog.Post)}
}

func (m *memRepo) Create(_ context.Context, p *blog.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if !existing.IsDeleted && existing.Slug == p.Slug {
			return shared.ErrDuplicate
		}
	}
	clone := *p
	m.posts[p.ID] = &clone
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*blog.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok && !p.IsDeleted {
		clone := *p
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) FindBySlug(_ context.Context, slug string) (*blog.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if !p.IsDeleted && p.Slug == slug {
			clone := *p
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Update(ctx context.Context, id string, fields blog.Update) (*blog.Post, error) {
	m.mu.Lock()
	p, ok := m.posts[id]
	if !ok || p.IsDeleted {
		m.mu.Unlock()
		return nil, shared.ErrNotFound
	}
	if fields.Title != nil {
		p.Title = *fields.Title
	}
	if fields.Slug != nil {
		p.Slug = *fields.Slug
	}
	if fields.Content != nil {
		p.Content = *fields.Content
	}
	if fields.Tags != nil {
		p.Tags = *fields.Tags
	}
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *memRepo) SetPublished(_ context.Context, id string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.IsDeleted {
		return shared.ErrNotFound
	}
	p.Published = published
	return nil
}

func (m *memRepo) IncrementViews(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.IsDeleted {
		return shared.ErrNotFound
	}
	p.Views++
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.IsDeleted {
		return shared.ErrNotFound
	}
	p.IsDeleted = true
	return nil
}

func (m *memRepo) List(_ context.Context, filter blog.ListFilter) ([]blog.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]blog.Post, 0)
	for _, p := range m.posts {
		if p.IsDeleted {
			continue
		}
		if filter.PublishedOnly && !p.Published {
			continue
		}
		if filter.Tag != "" && !containsTag(p.Tags, filter.Tag) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, len(out), nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

var _ blog.Repository = (*memRepo)(nil)

func newService() (*blog.Service, *memRepo) {
	repo := newMemRepo()
	return blog.NewService(repo, nil), repo
}

func createPost(t *testing.T, service *blog.Service, title string, published bool, tags ...string) *blog.Post {
	t.Helper()
	p, err := service.Create(context.Background(), uuid.NewString(), "editor@learnhub.com", blog.CreateInput{
		Title:     title,
		Content:   "body",
		Tags:      tags,
		Published: published,
	})
	require.NoError(t, err)
	return p
}

func TestCreateNormalizesTags(t *testing.T) {
	service, _ := newService()
	p := createPost(t, service, "Learning Go", true, " Go ", "go", "Backend")
	require.Equal(t, []string{"go", "backend"}, p.Tags)
	require.Equal(t, "learning-go", p.Slug)
}

func TestReadCountsViews(t *testing.T) {
	service, repo := newService()
	p := createPost(t, service, "Learning Go", true)

	first, err := service.Read(context.Background(), "learning-go")
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Views)

	_, err = service.Read(context.Background(), "learning-go")
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.Views)
}

func TestReadHidesDrafts(t *testing.T) {
	service, _ := newService()
	createPost(t, service, "Draft Post", false)

	_, err := service.Read(context.Background(), "draft-post")
	require.ErrorIs(t, err, blog.ErrNotPublished)
}

func TestListFiltersByTag(t *testing.T) {
	service, _ := newService()
	createPost(t, service, "Go Post", true, "go")
	createPost(t, service, "SQL Post", true, "sql")

	posts, total, err := service.List(context.Background(), blog.ListFilter{
		PublishedOnly: true, Tag: "go", Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Go Post", posts[0].Title)
}

func TestUpdateTitleRederivesSlug(t *testing.T) {
	service, _ := newService()
	p := createPost(t, service, "Old Title", true)

	title := "New Title"
	updated, err := service.Update(context.Background(), p.ID, blog.UpdateInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "new-title", updated.Slug)
}

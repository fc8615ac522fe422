package coursemodule

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/internal/account"
)

// EnrollmentChecker answers whether an account holds an active enrollment.
type EnrollmentChecker interface {
	HasActiveCourse(ctx context.Context, accountID, courseID string) (bool, error)
}

// RepoEnrollments implements EnrollmentChecker over the account store.
type RepoEnrollments struct {
	repo account.Repository
}

// NewRepoEnrollments constructs the adapter.
func NewRepoEnrollments(repo account.Repository) *RepoEnrollments {
	return &RepoEnrollments{repo: repo}
}

var _ EnrollmentChecker = (*RepoEnrollments)(nil)

// HasActiveCourse reports whether the course sits in the account's active set.
func (e *RepoEnrollments) HasActiveCourse(ctx context.Context, accountID, courseID string) (bool, error) {
	acct, err := e.repo.FindByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, id := range acct.ActiveCourseIDs {
		if id == courseID {
			return true, nil
		}
	}
	return false, nil
}

// Service implements module operations.
type Service struct {
	repo        Repository
	enrollments EnrollmentChecker
	logger      *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, enrollments EnrollmentChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enrollments: enrollments, logger: logger}
}

// CreateInput is the payload for creating a module.
type CreateInput struct {
	CourseID string   `json:"courseId" validate:"required,uuid4"`
	Title    string   `json:"title" validate:"required,min=2,max=200"`
	Lessons  []Lesson `json:"lessons" validate:"omitempty,dive"`
}

// Create appends a module to a course.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Module, error) {
	m := &Module{
		ID:       uuid.NewString(),
		CourseID: in.CourseID,
		Title:    strings.TrimSpace(in.Title),
		Lessons:  in.Lessons,
	}
	if m.Lessons == nil {
		m.Lessons = []Lesson{}
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateInput carries editable module fields. Nil means keep.
type UpdateInput struct {
	Title   *string   `json:"title" validate:"omitempty,min=2,max=200"`
	Lessons *[]Lesson `json:"lessons" validate:"omitempty,dive"`
}

// Update applies edits to a module.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Module, error) {
	return s.repo.Update(ctx, id, Update{Title: in.Title, Lessons: in.Lessons})
}

// Reorder rewrites a course's module ordering.
func (s *Service) Reorder(ctx context.Context, courseID string, orderedIDs []string) error {
	return s.repo.Reorder(ctx, courseID, orderedIDs)
}

// Delete soft-deletes a module.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// ListForViewer returns a course's syllabus, unlocked only for accounts
// that own the course. An empty accountID always gets the locked view.
func (s *Service) ListForViewer(ctx context.Context, courseID, accountID string) ([]Module, error) {
	modules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	unlocked := false
	if accountID != "" {
		unlocked, err = s.enrollments.HasActiveCourse(ctx, accountID, courseID)
		if err != nil {
			s.logger.Error("enrollment lookup failed", slog.Any("error", err))
			unlocked = false
		}
	}
	if unlocked {
		return modules, nil
	}
	locked := make([]Module, len(modules))
	for i, m := range modules {
		locked[i] = m.Locked()
	}
	return locked, nil
}

// ListForAdmin returns a course's modules with full content.
func (s *Service) ListForAdmin(ctx context.Context, courseID string) ([]Module, error) {
	return s.repo.ListByCourse(ctx, courseID)
}

package account

import (
	"context"

	"github.com/learnhub/learnhub/internal/auth"
)

// AuthSource adapts the account repository to the auth resolver's
// read-only view. One database read per guarded request, no caching.
type AuthSource struct {
	repo Repository
}

// NewAuthSource constructs the adapter.
func NewAuthSource(repo Repository) *AuthSource {
	return &AuthSource{repo: repo}
}

var _ auth.AccountSource = (*AuthSource)(nil)

// FindAccountByID loads the slice of the account the resolver checks.
func (s *AuthSource) FindAccountByID(ctx context.Context, id string) (*auth.Account, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &auth.Account{
		ID:               record.ID,
		Role:             record.Role,
		Email:            record.Email,
		RegistrationType: record.RegistrationType,
		Permissions:      record.Permissions,
		Status:           record.Status,
		IsDeleted:        record.IsDeleted,
	}, nil
}

package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/admin"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
	_ "github.com/learnhub/learnhub/testing"
)

// memRepo is a minimal in-memory account store for admin flow tests.
type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[string]*account.Account)}
}

func (m *memRepo) Create(_ context.Context, acct *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if !existing.IsDeleted && acct.Email != "" && existing.Email == acct.Email {
			return shared.ErrDuplicate
		}
	}
	clone := *acct
	m.accounts[acct.ID] = &clone
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[id]; ok {
		clone := *acct
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if !acct.IsDeleted && acct.Email == email {
			clone := *acct
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) FindByPhone(_ context.Context, phone string) (*account.Account, error) {
	return nil, shared.ErrNotFound
}

func (m *memRepo) UpdateProfile(ctx context.Context, id string, _ account.ProfileUpdate) (*account.Account, error) {
	return m.FindByID(ctx, id)
}

func (m *memRepo) AdminUpdate(ctx context.Context, id string, fields account.AdminUpdate) (*account.Account, error) {
	m.mu.Lock()
	acct, ok := m.accounts[id]
	if !ok || acct.IsDeleted {
		m.mu.Unlock()
		return nil, shared.ErrNotFound
	}
	if fields.FullName != nil {
		acct.FullName = *fields.FullName
	}
	if fields.Status != nil {
		acct.Status = *fields.Status
	}
	if fields.Role != nil {
		acct.Role = *fields.Role
	}
	if fields.Permissions != nil {
		acct.Permissions = *fields.Permissions
	}
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *memRepo) SetOTP(context.Context, string, string, time.Time) error { return nil }
func (m *memRepo) ConsumeOTP(context.Context, string) error                { return nil }
func (m *memRepo) TouchLastLogin(context.Context, string) error            { return nil }
func (m *memRepo) LinkSocialID(context.Context, string, string, string) error {
	return nil
}
func (m *memRepo) GrantCourse(context.Context, string, string) error { return nil }

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok || acct.IsDeleted {
		return shared.ErrNotFound
	}
	acct.IsDeleted = true
	return nil
}

func (m *memRepo) List(_ context.Context, filter account.ListFilter) ([]account.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]account.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		if acct.IsDeleted {
			continue
		}
		if filter.Kind != "" && acct.Role.Kind() != filter.Kind {
			continue
		}
		out = append(out, *acct)
	}
	return out, len(out), nil
}

var _ account.Repository = (*memRepo)(nil)

type fixture struct {
	repo    *memRepo
	codec   *auth.Codec
	service *admin.Service
	router  *chi.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	codec := auth.NewCodec("access-secret", "refresh-secret", 7*24*time.Hour, 30*24*time.Hour)
	resolver := auth.NewResolver(codec, account.NewAuthSource(repo))
	guard := auth.Guard{Resolver: resolver}
	policy := auth.CookiePolicy{AccessTTL: 7 * 24 * time.Hour, RefreshTTL: 30 * 24 * time.Hour}
	service := admin.NewService(repo, codec, resolver, nil)
	handler := admin.NewHandler(service, guard, policy, nil)
	router := chi.NewRouter()
	router.Route("/api/admins", handler.MountRoutes)
	return &fixture{repo: repo, codec: codec, service: service, router: router}
}

func (f *fixture) seed(t *testing.T, email string, role auth.Role) *account.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("sw0rdfish"), bcrypt.MinCost)
	require.NoError(t, err)
	acct := &account.Account{
		ID:               uuid.NewString(),
		FullName:         "Seeded Account",
		Email:            email,
		PasswordHash:     string(hash),
		Role:             role,
		RegistrationType: account.RegistrationManual,
		EmailVerified:    true,
		Status:           auth.StatusActive,
	}
	require.NoError(t, f.repo.Create(context.Background(), acct))
	return acct
}

func (f *fixture) accessToken(t *testing.T, acct *account.Account) string {
	t.Helper()
	token, err := f.codec.IssueAccessToken(auth.NewClaims(
		acct.ID, acct.Role.Kind(), acct.Role, acct.Email, acct.RegistrationType))
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Host = "localhost:8080"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminLoginAndProfile(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ops@learnhub.com", auth.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/admins/login", "", map[string]string{
		"email": "ops@learnhub.com", "password": "sw0rdfish",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	var access string
	for _, cookie := range cookies {
		if cookie.Name == auth.AccessTokenCookie {
			access = cookie.Value
		}
	}
	require.NotEmpty(t, access)

	rec = f.do(t, http.MethodGet, "/api/admins/profile", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStudentTokenRejectedByAdminGuard(t *testing.T) {
	f := newFixture(t)
	studentAcct := f.seed(t, "student@example.com", auth.RoleStudent)
	token := f.accessToken(t, studentAcct)

	rec := f.do(t, http.MethodGet, "/api/admins/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	plainAdmin := f.seed(t, "ops@learnhub.com", auth.RoleAdmin)
	superAdmin := f.seed(t, "root@learnhub.com", auth.RoleSuperAdmin)

	body := map[string]any{
		"fullName": "New Moderator",
		"email":    "mod@learnhub.com",
		"password": "longenough",
		"role":     "moderator",
	}

	rec := f.do(t, http.MethodPost, "/api/admins/register", f.accessToken(t, plainAdmin), body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admins/register", f.accessToken(t, superAdmin), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	created, err := f.repo.FindByEmail(context.Background(), "mod@learnhub.com")
	require.NoError(t, err)
	require.Equal(t, auth.RoleModerator, created.Role)
	require.True(t, created.EmailVerified)
}

func TestModeratorCannotManageAccounts(t *testing.T) {
	f := newFixture(t)
	moderator := f.seed(t, "mod@learnhub.com", auth.RoleModerator)

	rec := f.do(t, http.MethodGet, "/api/admins/accounts", f.accessToken(t, moderator), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDemotionRevokesAdminToken(t *testing.T) {
	f := newFixture(t)
	adminAcct := f.seed(t, "ops@learnhub.com", auth.RoleAdmin)
	token := f.accessToken(t, adminAcct)

	rec := f.do(t, http.MethodGet, "/api/admins/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	studentRole := auth.RoleStudent
	_, err := f.repo.AdminUpdate(context.Background(), adminAcct.ID, account.AdminUpdate{Role: &studentRole})
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/admins/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateAndDeleteAccount(t *testing.T) {
	f := newFixture(t)
	adminAcct := f.seed(t, "ops@learnhub.com", auth.RoleAdmin)
	target := f.seed(t, "student@example.com", auth.RoleStudent)
	token := f.accessToken(t, adminAcct)

	rec := f.do(t, http.MethodPatch, "/api/admins/accounts/"+target.ID, token, map[string]string{
		"status": "blocked",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated, err := f.repo.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, auth.StatusBlocked, updated.Status)

	rec = f.do(t, http.MethodDelete, "/api/admins/accounts/"+target.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted, err := f.repo.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.True(t, deleted.IsDeleted)
}

func TestListAccountsPaged(t *testing.T) {
	f := newFixture(t)
	adminAcct := f.seed(t, "ops@learnhub.com", auth.RoleAdmin)
	f.seed(t, "a@example.com", auth.RoleStudent)
	f.seed(t, "b@example.com", auth.RoleStudent)

	rec := f.do(t, http.MethodGet, "/api/admins/accounts?kind=student", f.accessToken(t, adminAcct), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var env shared.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.NotNil(t, env.Meta)
	require.Equal(t, 2, env.Meta.Total)
}

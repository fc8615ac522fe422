package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the admin HTTP surface.
type Handler struct {
	service  *Service
	guard    auth.Guard
	policy   auth.CookiePolicy
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, guard auth.Guard, policy auth.CookiePolicy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		guard:    guard,
		policy:   policy,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// MountRoutes registers the admin routes. Login sits behind a tighter
// per-IP bucket than the global limit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/login", h.login)
	r.Post("/refresh-token", h.refresh)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Get("/profile", h.profile)
		r.Put("/profile", h.updateProfile)

		// Creating admins is reserved for super admins.
		r.With(h.guard.RequireRole(auth.KindAdmin, auth.RoleSuperAdmin)).
			Post("/register", h.register)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
			r.Get("/accounts", h.listAccounts)
			r.Get("/accounts/{id}", h.getAccount)
			r.Patch("/accounts/{id}", h.updateAccount)
			r.With(h.guard.RequirePermission(auth.KindAdmin, "accounts:delete")).
				Delete("/accounts/{id}", h.deleteAccount)
		})
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	acct, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusCreated, "Admin account created", acct.ToPublic())
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	acct, pair, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.policy.SetAuthCookies(w, h.policy.PlacementFor(r), pair.AccessToken, pair.RefreshToken)
	shared.OK(w, http.StatusOK, "Logged in", acct.ToPublic())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := auth.RefreshTokenFromRequest(r)
	if token == "" {
		shared.Fail(w, http.StatusUnauthorized, auth.MsgUnauthenticated)
		return
	}
	access, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		shared.Fail(w, http.StatusUnauthorized, auth.MsgUnauthenticated)
		return
	}
	h.policy.SetAccessCookie(w, h.policy.PlacementFor(r), access)
	shared.OK(w, http.StatusOK, "Token refreshed", nil)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.policy.ClearAuthCookies(w, h.policy.PlacementFor(r))
	shared.OK(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindAdmin)
	acct, err := h.service.Profile(r.Context(), principal.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Profile", acct.ToPublic())
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindAdmin)
	var in UpdateProfileInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	acct, err := h.service.UpdateProfile(r.Context(), principal.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Profile updated", acct.ToPublic())
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := shared.PageParams(q)
	filter := account.ListFilter{
		Role:             auth.Role(q.Get("role")),
		Kind:             auth.Kind(q.Get("kind")),
		Status:           q.Get("status"),
		RegistrationType: q.Get("registrationType"),
		Search:           q.Get("search"),
		Page:             page,
		Limit:            limit,
	}
	if v := q.Get("emailVerified"); v == "true" || v == "false" {
		verified := v == "true"
		filter.EmailVerified = &verified
	}

	accounts, total, err := h.service.ListAccounts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	public := make([]account.Public, 0, len(accounts))
	for i := range accounts {
		public = append(public, accounts[i].ToPublic())
	}
	shared.OKPaged(w, http.StatusOK, "Accounts", public, shared.NewPagination(page, limit, total))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Account", acct.ToPublic())
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var in UpdateAccountInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	acct, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Account updated", acct.ToPublic())
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Account deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		shared.Fail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		shared.Fail(w, http.StatusUnauthorized, auth.MsgUnauthenticated)
	case errors.Is(err, shared.ErrDuplicate):
		shared.Fail(w, http.StatusConflict, "An account with that email or phone already exists")
	case errors.Is(err, shared.ErrNotFound):
		shared.Fail(w, http.StatusNotFound, "Account not found")
	default:
		h.logger.Error("admin request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

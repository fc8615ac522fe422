package student

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the student HTTP surface.
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

// MountRoutes registers the student routes. Credential endpoints sit
// behind a tighter per-IP bucket than the global limit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/register", h.register)
		r.Post("/verify-otp", h.verifyOTP)
		r.Post("/resend-otp", h.resendOTP)
		r.Post("/login", h.login)
		r.Post("/social-login", h.socialLogin)
	})
	r.Post("/refresh-token", h.refresh)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindStudent))
		r.Get("/profile", h.profile)
		r.Put("/profile", h.updateProfile)
		r.Patch("/profile", h.updateProfile)
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
	msg := "Account created, verification code sent"
	if acct.EmailVerified {
		msg = "Account created"
	}
	shared.OK(w, http.StatusCreated, msg, acct.ToPublic())
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in VerifyOTPInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	if err := h.service.VerifyOTP(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Account verified", nil)
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in ResendOTPInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	if err := h.service.ResendOTP(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Verification code sent", nil)
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

func (h *Handler) socialLogin(w http.ResponseWriter, r *http.Request) {
	var in SocialLoginInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	acct, pair, err := h.service.SocialLogin(r.Context(), in)
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
	principal := auth.PrincipalFromContext(r.Context(), auth.KindStudent)
	acct, err := h.service.Profile(r.Context(), principal.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Profile", acct.ToPublic())
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindStudent)
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

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		shared.Fail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		shared.Fail(w, http.StatusUnauthorized, auth.MsgUnauthenticated)
	case errors.Is(err, ErrNotVerified):
		shared.Fail(w, http.StatusForbidden, "Account not verified")
	case errors.Is(err, ErrOTPInvalid):
		shared.Fail(w, http.StatusBadRequest, "Invalid or expired verification code")
	case errors.Is(err, shared.ErrDuplicate):
		shared.Fail(w, http.StatusConflict, "An account with that email or phone already exists")
	case errors.Is(err, shared.ErrNotFound):
		shared.Fail(w, http.StatusNotFound, "Account not found")
	default:
		h.logger.Error("student request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

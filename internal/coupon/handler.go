package coupon

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the coupon HTTP surface.
type Handler struct {
	service  *Service
	guard    auth.Guard
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, guard auth.Guard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		guard:    guard,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// MountRoutes registers coupon routes. Students may price-check a code;
// everything else is admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(auth.KindStudent)).Post("/apply", h.apply)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Get("/manage", h.list)
		r.Get("/manage/stats", h.stats)
		r.Post("/manage", h.create)
		r.Post("/manage/{id}/status", h.setStatus)
	})
}

type applyInput struct {
	Code     string `json:"code" validate:"required"`
	CourseID string `json:"courseId" validate:"required,uuid4"`
	Price    int64  `json:"price" validate:"required,gt=0"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindStudent)
	var in applyInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	_, quote, err := h.service.Validate(r.Context(), principal.ID, in.Code, in.CourseID, in.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Coupon applied", quote)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r.URL.Query())
	coupons, total, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Coupons", coupons, shared.NewPagination(page, limit, total))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Coupon stats", s)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusCreated, "Coupon created", c)
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	if err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), in.Status); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Coupon status updated", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalid):
		shared.Fail(w, http.StatusBadRequest, "Invalid coupon code")
	case errors.Is(err, ErrExpired):
		shared.Fail(w, http.StatusBadRequest, "This coupon has expired")
	case errors.Is(err, ErrExhausted):
		shared.Fail(w, http.StatusBadRequest, "This coupon has reached its usage limit")
	case errors.Is(err, ErrCourseMismatch):
		shared.Fail(w, http.StatusBadRequest, "This coupon is not valid for the selected course")
	case errors.Is(err, ErrAlreadyUsed):
		shared.Fail(w, http.StatusBadRequest, "You have already used this coupon")
	case errors.Is(err, shared.ErrDuplicate):
		shared.Fail(w, http.StatusConflict, "A coupon with that code already exists")
	case errors.Is(err, shared.ErrNotFound):
		shared.Fail(w, http.StatusNotFound, "Coupon not found")
	default:
		h.logger.Error("coupon request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

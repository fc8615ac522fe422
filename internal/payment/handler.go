package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/coupon"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the payment HTTP surface.
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

// MountRoutes registers payment routes. Students submit and see their own
// claims; decisions belong to admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindStudent))
		r.Post("/", h.submit)
		r.Get("/mine", h.listMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Get("/manage", h.list)
		r.Get("/manage/{id}", h.get)
		r.Post("/manage/{id}/accept", h.accept)
		r.Post("/manage/{id}/reject", h.reject)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindStudent)
	var in SubmitInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	p, err := h.service.Submit(r.Context(), principal.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusCreated, "Payment submitted for review", p)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindStudent)
	page, limit := shared.PageParams(r.URL.Query())
	payments, total, err := h.service.List(r.Context(), ListFilter{
		AccountID: principal.ID,
		Status:    r.URL.Query().Get("status"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Payments", payments, shared.NewPagination(page, limit, total))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r.URL.Query())
	payments, total, err := h.service.List(r.Context(), ListFilter{
		AccountID: r.URL.Query().Get("accountId"),
		Status:    r.URL.Query().Get("status"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Payments", payments, shared.NewPagination(page, limit, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Payment", p)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindAdmin)
	p, err := h.service.Accept(r.Context(), chi.URLParam(r, "id"), principal.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Payment accepted", p)
}

type rejectInput struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindAdmin)
	var in rejectInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	p, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"), principal.ID, in.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Payment rejected", p)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAlreadyOwned):
		shared.Fail(w, http.StatusConflict, "You already own this course or have a pending payment for it")
	case errors.Is(err, ErrAmountMismatch):
		shared.Fail(w, http.StatusBadRequest, "The amount does not match the course price")
	case errors.Is(err, ErrAlreadyDecided):
		shared.Fail(w, http.StatusConflict, "This payment has already been decided")
	case errors.Is(err, coupon.ErrInvalid), errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrExhausted), errors.Is(err, coupon.ErrCourseMismatch),
		errors.Is(err, coupon.ErrAlreadyUsed):
		shared.Fail(w, http.StatusBadRequest, "The coupon could not be applied")
	case errors.Is(err, shared.ErrNotFound):
		shared.Fail(w, http.StatusNotFound, "Not found")
	default:
		h.logger.Error("payment request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

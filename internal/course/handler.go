package course

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the course catalog HTTP surface.
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

// MountRoutes registers catalog routes. Reads are public; writes sit
// behind the admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{slug}", h.getBySlug)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Get("/manage", h.listAll)
		r.Get("/manage/{id}", h.get)
		r.Post("/manage", h.create)
		r.Patch("/manage/{id}", h.update)
		r.Post("/manage/{id}/publish", h.publish)
		r.Post("/manage/{id}/unpublish", h.unpublish)
		r.Delete("/manage/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r.URL.Query())
	result, err := h.service.List(r.Context(), ListFilter{
		PublishedOnly: true,
		Search:        r.URL.Query().Get("search"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Courses", result.Courses, shared.NewPagination(page, limit, result.Total))
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Course", c)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r.URL.Query())
	result, err := h.service.List(r.Context(), ListFilter{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Courses", result.Courses, shared.NewPagination(page, limit, result.Total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Course", c)
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
	shared.OK(w, http.StatusCreated, "Course created", c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	c, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Course updated", c)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true, "Course published")
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false, "Course unpublished")
}

func (h *Handler) setPublished(w http.ResponseWriter, r *http.Request, published bool, message string) {
	if err := h.service.SetPublished(r.Context(), chi.URLParam(r, "id"), published); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, message, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Course deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrNotPublished):
		shared.Fail(w, http.StatusNotFound, "Course not found")
	case errors.Is(err, shared.ErrDuplicate):
		shared.Fail(w, http.StatusConflict, "A course with that title already exists")
	default:
		h.logger.Error("course request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

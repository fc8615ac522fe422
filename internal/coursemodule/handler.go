package coursemodule

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the course module HTTP surface.
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

// MountRoutes registers module routes. The syllabus listing works without
// a session but only unlocks content for enrolled students.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/course/{courseId}", h.listForViewer)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Get("/manage/course/{courseId}", h.listForAdmin)
		r.Post("/manage", h.create)
		r.Patch("/manage/{id}", h.update)
		r.Post("/manage/course/{courseId}/reorder", h.reorder)
		r.Delete("/manage/{id}", h.delete)
	})
}

func (h *Handler) listForViewer(w http.ResponseWriter, r *http.Request) {
	// Best-effort identity: a valid student session unlocks owned content,
	// anything else falls back to the locked syllabus.
	accountID := ""
	if token := auth.ExtractToken(r); token != "" {
		if principal, err := h.guard.Resolver.Resolve(r.Context(), token, auth.KindStudent); err == nil {
			accountID = principal.ID
		}
	}
	modules, err := h.service.ListForViewer(r.Context(), chi.URLParam(r, "courseId"), accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Modules", modules)
}

func (h *Handler) listForAdmin(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.ListForAdmin(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Modules", modules)
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
	m, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusCreated, "Module created", m)
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
	m, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Module updated", m)
}

type reorderInput struct {
	ModuleIDs []string `json:"moduleIds" validate:"required,min=1,dive,uuid4"`
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	var in reorderInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	if err := h.service.Reorder(r.Context(), chi.URLParam(r, "courseId"), in.ModuleIDs); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Modules reordered", nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Module deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.Fail(w, http.StatusNotFound, "Module not found")
	default:
		h.logger.Error("module request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

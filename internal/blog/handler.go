package blog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes the blog HTTP surface.
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

// MountRoutes registers blog routes. Reads are public; writes sit behind
// the admin guard and include moderators.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{slug}", h.read)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin, auth.RoleModerator))
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
	h.listWith(w, r, true)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, false)
}

func (h *Handler) listWith(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	q := r.URL.Query()
	page, limit := shared.PageParams(q)
	posts, total, err := h.service.List(r.Context(), ListFilter{
		PublishedOnly: publishedOnly,
		Tag:           q.Get("tag"),
		Search:        q.Get("search"),
		AuthorID:      q.Get("authorId"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OKPaged(w, http.StatusOK, "Posts", posts, shared.NewPagination(page, limit, total))
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Read(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Post", p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Post", p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context(), auth.KindAdmin)
	var in CreateInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Validation failed", shared.ValidationSources(err)...)
		return
	}
	p, err := h.service.Create(r.Context(), principal.ID, principal.Email, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusCreated, "Post created", p)
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
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.OK(w, http.StatusOK, "Post updated", p)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true, "Post published")
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false, "Post unpublished")
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
	shared.OK(w, http.StatusOK, "Post deleted", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrNotPublished):
		shared.Fail(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, shared.ErrDuplicate):
		shared.Fail(w, http.StatusConflict, "A post with that title already exists")
	default:
		h.logger.Error("blog request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// AngelaMos | 2026
// handler.go

package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	selfOrAdmin := middleware.RequireSelfOrAdmin("id")

	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.With(middleware.RequireAdmin).Get("/", h.ListUsers)

		r.Route("/{id}", func(r chi.Router) {
			r.With(selfOrAdmin).Get("/", h.GetUser)
			r.With(selfOrAdmin).Put("/", h.UpdateUser)
			r.With(middleware.RequireAdmin).Delete("/", h.DeleteUser)
			r.With(middleware.RequireAdmin).Put("/toggle-status", h.ToggleStatus)
		})
	})
}

// ListUsers returns a page of users filtered by search, role and isActive.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListUsersParams{
		Page:   parseIntQuery(r, "page", 1),
		Limit:  parseIntQuery(r, "limit", defaultPageLimit),
		Search: q.Get("search"),
		Role:   q.Get("role"),
	}
	if v, err := strconv.ParseBool(q.Get("isActive")); err == nil {
		params.IsActive = &v
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.Paginated(w, "users", ToUserResponseList(users), params.Page, params.Limit, total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, core.Payload{"user": ToUserResponse(user)})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	user, err := h.service.UpdateUser(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "id"),
		req,
	)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "user updated successfully", core.Payload{"user": ToUserResponse(user)})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "user deleted successfully", nil)
}

func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.ToggleStatus(
		r.Context(),
		middleware.GetIdentity(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		h.fail(w, err)
		return
	}

	msg := "user deactivated successfully"
	if user.IsActive {
		msg = "user activated successfully"
	}

	core.OKMessage(w, msg, core.Payload{"user": ToUserResponse(user)})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	appErr := userError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		core.InternalServerError(w, err)
		return
	}
	core.JSONError(w, appErr)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

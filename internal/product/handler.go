// AngelaMos | 2026
// handler.go

package product

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

// RegisterRoutes mounts /products. Reads are public and expect the parent
// router to attach an optional identity so admins see inactive products.
// Writes are admin only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/categories", h.Categories)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort, err := ParseSort(q.Get("sort"))
	if err != nil {
		core.BadRequest(w, "sort must be one of name, price, createdAt with an optional - prefix")
		return
	}

	params := ListProductsParams{
		Page:            parseIntQuery(r, "page", 1),
		Limit:           parseIntQuery(r, "limit", defaultPageLimit),
		Category:        q.Get("category"),
		Search:          q.Get("search"),
		Sort:            sort,
		IncludeInactive: middleware.IsAdmin(r.Context()) && q.Get("includeInactive") == "true",
	}

	if params.Category != "" && !IsCategory(params.Category) {
		core.BadRequest(w, "unknown category")
		return
	}

	for key, dst := range map[string]**float64{"minPrice": &params.MinPrice, "maxPrice": &params.MaxPrice} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || v < 0 {
			core.BadRequest(w, key+" must be a non-negative number")
			return
		}
		*dst = &v
	}

	params.Normalize()

	products, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.Paginated(w, "products", products, params.Page, params.Limit, total)
}

func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, core.Payload{"categories": Categories()})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, core.Payload{"product": p})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), middleware.GetIdentity(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.Created(w, "product created successfully", core.Payload{"product": p})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "product updated successfully", core.Payload{"product": p})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "product deleted successfully", nil)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	appErr := productError(err)
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

// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

type Service struct {
	repo  Repository
	cache *core.Cache
}

// NewService wires the product service. cache may be nil, in which case
// every read goes to the repository.
func NewService(repo Repository, cache *core.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) List(ctx context.Context, params ListProductsParams) ([]Product, int, error) {
	return s.repo.List(ctx, params)
}

// Get returns one product. Inactive products are reported as missing unless
// includeInactive is set.
func (s *Service) Get(ctx context.Context, id string, includeInactive bool) (*Product, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !p.IsActive && !includeInactive {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}

	return p, nil
}

func (s *Service) load(ctx context.Context, id string) (*Product, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, id)
	}
	return core.GetOrLoadJSON(ctx, s.cache, id, func(ctx context.Context) (*Product, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *Service) Create(
	ctx context.Context,
	actor *middleware.Identity,
	req CreateProductRequest,
) (*Product, error) {
	ctx, span := core.StartSpan(ctx, "product.Create")
	defer span.End()

	if fields := blankFields(&req.Name, &req.Description); len(fields) > 0 {
		return nil, core.ValidationError(fields)
	}

	p := &Product{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Category:       req.Category,
		Stock:          req.Stock,
		Images:         slices.Clone(req.Images),
		Specifications: maps.Clone(req.Specifications),
		Tags:           normalizeTags(req.Tags),
		IsActive:       true,
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if actor != nil {
		p.CreatedBy = actor.UserID
	}

	if err := s.repo.Create(ctx, p); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	core.AddSpanEvent(ctx, "product.created", attribute.String("product.id", p.ID))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	if fields := blankFields(req.Name, req.Description); len(fields) > 0 {
		return nil, core.ValidationError(fields)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Images != nil {
		p.Images = slices.Clone(*req.Images)
	}
	if req.Specifications != nil {
		p.Specifications = maps.Clone(*req.Specifications)
	}
	if req.Tags != nil {
		p.Tags = normalizeTags(*req.Tags)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return p, nil
}

// Delete is a soft delete. Deleting an inactive product succeeds again.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.IsActive {
		p.IsActive = false
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// blankFields reports a name or description that is present but only
// whitespace. Validation tags run before trimming so they cannot catch it.
func blankFields(name, description *string) []core.FieldError {
	var fields []core.FieldError
	if name != nil && strings.TrimSpace(*name) == "" {
		fields = append(fields, core.FieldError{Field: "name", Message: "name cannot be blank"})
	}
	if description != nil && strings.TrimSpace(*description) == "" {
		fields = append(fields, core.FieldError{
			Field:   "description",
			Message: "description cannot be blank",
		})
	}
	return fields
}

func productError(err error) *core.AppError {
	if appErr, ok := core.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("product")
	case errors.Is(err, core.ErrInvalidInput):
		return core.BadRequestError(err.Error())
	default:
		return core.InternalError(err)
	}
}

// AngelaMos | 2026
// dto.go

package product

import (
	"fmt"
	"strings"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type CreateProductRequest struct {
	Name           string            `json:"name"           validate:"required,max=100"`
	Description    string            `json:"description"    validate:"required,max=2000"`
	Price          *float64          `json:"price"          validate:"required,gte=0"`
	Category       string            `json:"category"       validate:"required,oneof=electronics clothing books home sports toys beauty other"`
	Stock          int               `json:"stock"          validate:"gte=0"`
	Images         []string          `json:"images"         validate:"max=20,dive,url"`
	Specifications map[string]string `json:"specifications" validate:"max=50,dive,keys,max=100,endkeys,max=500"`
	Tags           []string          `json:"tags"           validate:"max=20,dive,max=50"`
}

// UpdateProductRequest is a partial update; nil fields are left alone.
type UpdateProductRequest struct {
	Name           *string            `json:"name,omitempty"           validate:"omitempty,min=1,max=100"`
	Description    *string            `json:"description,omitempty"    validate:"omitempty,min=1,max=2000"`
	Price          *float64           `json:"price,omitempty"          validate:"omitempty,gte=0"`
	Category       *string            `json:"category,omitempty"       validate:"omitempty,oneof=electronics clothing books home sports toys beauty other"`
	Stock          *int               `json:"stock,omitempty"          validate:"omitempty,gte=0"`
	Images         *[]string          `json:"images,omitempty"         validate:"omitempty,max=20,dive,url"`
	Specifications *map[string]string `json:"specifications,omitempty" validate:"omitempty,max=50,dive,keys,max=100,endkeys,max=500"`
	Tags           *[]string          `json:"tags,omitempty"           validate:"omitempty,max=20,dive,max=50"`
	IsActive       *bool              `json:"isActive,omitempty"`
}

type SortField string

const (
	SortName      SortField = "name"
	SortPrice     SortField = "price"
	SortCreatedAt SortField = "createdAt"
)

type Sort struct {
	Field SortField
	Desc  bool
}

var defaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort reads "field" or "-field". An empty value gives -createdAt.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSort, nil
	}

	s := Sort{}
	if name, ok := strings.CutPrefix(raw, "-"); ok {
		s.Desc = true
		raw = name
	}

	switch SortField(raw) {
	case SortName, SortPrice, SortCreatedAt:
		s.Field = SortField(raw)
		return s, nil
	default:
		return Sort{}, fmt.Errorf("sort by %q: %w", raw, core.ErrInvalidInput)
	}
}

type ListProductsParams struct {
	Page            int
	Limit           int
	Category        string
	Search          string
	MinPrice        *float64
	MaxPrice        *float64
	Sort            Sort
	IncludeInactive bool
}

func (p *ListProductsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Sort.Field == "" {
		p.Sort = defaultSort
	}
}

func (p *ListProductsParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

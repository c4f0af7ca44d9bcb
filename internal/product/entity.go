// AngelaMos | 2026
// entity.go

package product

import (
	"slices"
	"time"
)

// Product is also the shape stored in the read cache, hence the JSON tags.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	Category       string            `json:"category"`
	Stock          int               `json:"stock"`
	Images         []string          `json:"images"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`
	IsActive       bool              `json:"isActive"`
	CreatedBy      string            `json:"createdBy,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// normalize replaces nil collections so clients always see [] and {}.
func (p *Product) normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Specifications == nil {
		p.Specifications = map[string]string{}
	}
}

const (
	CategoryElectronics = "electronics"
	CategoryClothing    = "clothing"
	CategoryBooks       = "books"
	CategoryHome        = "home"
	CategorySports      = "sports"
	CategoryToys        = "toys"
	CategoryBeauty      = "beauty"
	CategoryOther       = "other"
)

var categories = []string{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHome,
	CategorySports,
	CategoryToys,
	CategoryBeauty,
	CategoryOther,
}

func Categories() []string {
	return slices.Clone(categories)
}

func IsCategory(c string) bool {
	return slices.Contains(categories, c)
}

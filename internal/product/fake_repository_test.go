// AngelaMos | 2026
// fake_repository_test.go

package product

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

type memoryRepository struct {
	mu       sync.Mutex
	products map[string]Product
	nextID   int
	gets     int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{products: make(map[string]Product)}
}

func (m *memoryRepository) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.normalize()
	m.nextID++
	now := time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	p.ID = "p" + strconv.Itoa(m.nextID)
	p.CreatedAt, p.UpdatedAt = now, now
	m.products[p.ID] = *p
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (m *memoryRepository) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	p.normalize()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = *p
	return nil
}

func (m *memoryRepository) List(_ context.Context, params ListProductsParams) ([]Product, int, error) {
	params.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(params.Search)
	var matched []Product
	for _, p := range m.products {
		switch {
		case !params.IncludeInactive && !p.IsActive:
		case params.Category != "" && p.Category != params.Category:
		case search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search):
		case params.MinPrice != nil && p.Price < *params.MinPrice:
		case params.MaxPrice != nil && p.Price > *params.MaxPrice:
		default:
			matched = append(matched, p)
		}
	}

	less := func(a, b Product) bool {
		switch params.Sort.Field {
		case SortName:
			return a.Name < b.Name
		case SortPrice:
			return a.Price < b.Price
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if params.Sort.Desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.Limit, total)
	return matched[start:end], total, nil
}

func (m *memoryRepository) CountActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.products {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// AngelaMos | 2026
// repository.go

package product

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context, params ListProductsParams) ([]Product, int, error)
	CountActive(ctx context.Context) (int, error)
}

// jsonColumn maps a JSONB column onto a Go value.
type jsonColumn[T any] struct {
	V T
}

func (c *jsonColumn[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, &c.V)
	case string:
		return json.Unmarshal([]byte(v), &c.V)
	default:
		return fmt.Errorf("scan json column: unsupported type %T", src)
	}
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type productRow struct {
	ID             string                        `db:"id"`
	Name           string                        `db:"name"`
	Description    string                        `db:"description"`
	Price          float64                       `db:"price"`
	Category       string                        `db:"category"`
	Stock          int                           `db:"stock"`
	Images         jsonColumn[[]string]          `db:"images"`
	Specifications jsonColumn[map[string]string] `db:"specifications"`
	Tags           jsonColumn[[]string]          `db:"tags"`
	IsActive       bool                          `db:"is_active"`
	CreatedBy      string                        `db:"created_by"`
	CreatedAt      time.Time                     `db:"created_at"`
	UpdatedAt      time.Time                     `db:"updated_at"`
}

func (r *productRow) toProduct() *Product {
	p := &Product{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		Category:       r.Category,
		Stock:          r.Stock,
		Images:         r.Images.V,
		Specifications: r.Specifications.V,
		Tags:           r.Tags.V,
		IsActive:       r.IsActive,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	p.normalize()
	return p
}

const productColumns = `id, name, description, price::float8 AS price, category,
		       stock, images, specifications, tags, is_active,
		       COALESCE(created_by::text, '') AS created_by,
		       created_at, updated_at`

var pgSortColumns = map[SortField]string{
	SortName:      "name",
	SortPrice:     "price",
	SortCreatedAt: "created_at",
}

type postgresRepository struct {
	db core.DBTX
}

func NewPostgresRepository(db core.DBTX) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	p.normalize()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	var createdBy any
	if uuid.Validate(p.CreatedBy) == nil {
		createdBy = p.CreatedBy
	}

	query := `
		INSERT INTO products (id, name, description, price, category, stock,
		                      images, specifications, tags, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		jsonColumn[[]string]{V: p.Images},
		jsonColumn[map[string]string]{V: p.Specifications},
		jsonColumn[[]string]{V: p.Tags},
		p.IsActive,
		createdBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}

	var row productRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return row.toProduct(), nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	if uuid.Validate(p.ID) != nil {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	p.normalize()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, stock = $6,
		    images = $7, specifications = $8, tags = $9, is_active = $10,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		jsonColumn[[]string]{V: p.Images},
		jsonColumn[map[string]string]{V: p.Specifications},
		jsonColumn[[]string]{V: p.Tags},
		p.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

func (r *postgresRepository) List(
	ctx context.Context,
	params ListProductsParams,
) ([]Product, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if !params.IncludeInactive {
		conditions = append(conditions, "is_active")
	}

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%[1]d OR description ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, *params.MinPrice)
		argIdx++
	}

	if params.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, *params.MaxPrice)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	direction := "ASC"
	if params.Sort.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause,
		pgSortColumns[params.Sort.Field], direction,
		argIdx, argIdx+1)

	args = append(args, params.Limit, params.Offset())

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].toProduct())
	}

	return products, total, nil
}

func (r *postgresRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE is_active`); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// AngelaMos | 2026
// repository_mongo.go

package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

const collectionName = "products"

type productDocument struct {
	ID             bson.ObjectID     `bson:"_id"`
	Name           string            `bson:"name"`
	Description    string            `bson:"description"`
	Price          float64           `bson:"price"`
	Category       string            `bson:"category"`
	Stock          int               `bson:"stock"`
	Images         []string          `bson:"images"`
	Specifications map[string]string `bson:"specifications"`
	Tags           []string          `bson:"tags"`
	IsActive       bool              `bson:"isActive"`
	CreatedBy      *bson.ObjectID    `bson:"createdBy,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt"`
	UpdatedAt      time.Time         `bson:"updatedAt"`
}

func (d *productDocument) toProduct() *Product {
	p := &Product{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Category:       d.Category,
		Stock:          d.Stock,
		Images:         d.Images,
		Specifications: d.Specifications,
		Tags:           d.Tags,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.CreatedBy != nil {
		p.CreatedBy = d.CreatedBy.Hex()
	}
	p.normalize()
	return p
}

var mongoSortFields = map[SortField]string{
	SortName:      "name",
	SortPrice:     "price",
	SortCreatedAt: "createdAt",
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure product indexes: %w", err)
	}
	return nil
}

func (r *mongoRepository) Create(ctx context.Context, p *Product) error {
	p.normalize()
	now := time.Now().UTC().Truncate(time.Millisecond)

	doc := productDocument{
		ID:             bson.NewObjectID(),
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		Category:       p.Category,
		Stock:          p.Stock,
		Images:         p.Images,
		Specifications: p.Specifications,
		Tags:           p.Tags,
		IsActive:       p.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if oid, err := bson.ObjectIDFromHex(p.CreatedBy); err == nil {
		doc.CreatedBy = &oid
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	p.ID = doc.ID.Hex()
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}

	var doc productDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return doc.toProduct(), nil
}

func (r *mongoRepository) Update(ctx context.Context, p *Product) error {
	oid, err := bson.ObjectIDFromHex(p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	p.normalize()

	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":           p.Name,
		"description":    p.Description,
		"price":          p.Price,
		"category":       p.Category,
		"stock":          p.Stock,
		"images":         p.Images,
		"specifications": p.Specifications,
		"tags":           p.Tags,
		"isActive":       p.IsActive,
		"updatedAt":      now,
	}})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}

	p.UpdatedAt = now
	return nil
}

func (r *mongoRepository) List(
	ctx context.Context,
	params ListProductsParams,
) ([]Product, int, error) {
	params.Normalize()

	filter := bson.M{}
	if !params.IncludeInactive {
		filter["isActive"] = true
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(params.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	if params.MinPrice != nil || params.MaxPrice != nil {
		price := bson.M{}
		if params.MinPrice != nil {
			price["$gte"] = *params.MinPrice
		}
		if params.MaxPrice != nil {
			price["$lte"] = *params.MaxPrice
		}
		filter["price"] = price
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	direction := 1
	if params.Sort.Desc {
		direction = -1
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: mongoSortFields[params.Sort.Field], Value: direction},
			{Key: "_id", Value: 1},
		}).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.Limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, 0, len(docs))
	for i := range docs {
		products = append(products, *docs[i].toProduct())
	}

	return products, int(total), nil
}

func (r *mongoRepository) CountActive(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return int(n), nil
}

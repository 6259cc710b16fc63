package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/toughshop/internal/domain"
	"gorm.io/gorm"
)

// Store persists products. Implementations return errors matching
// domain.ErrNotFound for absent ids and *domain.StoreError for persistence failures.
type Store interface {
	// Create inserts a new product
	Create(ctx context.Context, p *domain.Product) error

	// GetByID retrieves a product by id
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List returns all products in persisted order
	List(ctx context.Context) ([]domain.Product, error)

	// ListByCategory returns the products whose category equals category
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)

	// ListFeatured returns the products flagged as featured
	ListFeatured(ctx context.Context) ([]domain.Product, error)

	// ListIDs returns the ids of all products
	ListIDs(ctx context.Context) ([]int64, error)

	// ListByIDs returns the products with the given ids, in persisted order
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// Search returns products whose name or description contains term, ignoring case
	Search(ctx context.Context, term string) ([]domain.Product, error)

	// ToggleFeatured flips the featured flag and returns the updated product
	ToggleFeatured(ctx context.Context, id int64) (*domain.Product, error)

	// Delete removes a product
	Delete(ctx context.Context, id int64) error
}

// GormStore is the GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based product store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) Create(ctx context.Context, p *domain.Product) error {
	return domain.WrapStore("create product", r.db.WithContext(ctx).Create(p).Error)
}

func (r *GormStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("product %d", id)
	}
	if err != nil {
		return nil, domain.WrapStore("query product", err)
	}
	return &p, nil
}

func (r *GormStore) find(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	err := scope(r.db.WithContext(ctx).Model(&domain.Product{})).Order("id ASC").Find(&products).Error
	if err != nil {
		return nil, domain.WrapStore(op, err)
	}
	return products, nil
}

func (r *GormStore) List(ctx context.Context) ([]domain.Product, error) {
	return r.find(ctx, "query products", func(db *gorm.DB) *gorm.DB { return db })
}

func (r *GormStore) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return r.find(ctx, "query products by category", func(db *gorm.DB) *gorm.DB {
		return db.Where("category = ?", category)
	})
}

func (r *GormStore) ListFeatured(ctx context.Context) ([]domain.Product, error) {
	return r.find(ctx, "query featured products", func(db *gorm.DB) *gorm.DB {
		return db.Where("is_featured = ?", true)
	})
}

func (r *GormStore) ListIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Order("id ASC").Pluck("id", &ids).Error
	if err != nil {
		return nil, domain.WrapStore("query product ids", err)
	}
	return ids, nil
}

func (r *GormStore) ListByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	return r.find(ctx, "query products by ids", func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN ?", ids)
	})
}

func (r *GormStore) Search(ctx context.Context, term string) ([]domain.Product, error) {
	pattern := "%" + escapeLike(domain.FoldSearch(term)) + "%"
	return r.find(ctx, "search products", func(db *gorm.DB) *gorm.DB {
		return db.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
	})
}

func (r *GormStore) ToggleFeatured(ctx context.Context, id int64) (*domain.Product, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_featured": gorm.Expr("NOT is_featured"),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, domain.WrapStore("toggle featured", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFoundf("product %d", id)
	}
	return r.GetByID(ctx, id)
}

func (r *GormStore) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return domain.WrapStore("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("product %d", id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

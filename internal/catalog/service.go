package catalog

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/pkg/common"
	"github.com/talkincode/toughshop/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRecommendSize = 3
	MaxRecommendSize     = 20
)

// Draft is the input of Create. Price is a pointer so a missing value can be
// told apart from zero.
type Draft struct {
	Name        string
	Description string
	Price       *decimal.Decimal
	Category    string
	Image       string
}

// Service implements the catalog operations on top of a Store
type Service struct {
	store  Store
	images ImageStore
	cache  FeaturedCache
	bus    EventBus.BusPublisher

	recommendSize int

	sf singleflight.Group
	// gen is bumped on every invalidation; a cache fill that started under an
	// older generation must not be written back
	gen    atomic.Uint64
	fillMu sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand

	now func() time.Time
}

type Option func(*Service)

// WithImageStore stores data URI images instead of keeping them inline
func WithImageStore(images ImageStore) Option {
	return func(s *Service) { s.images = images }
}

func WithFeaturedCache(cache FeaturedCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithEventBus publishes catalog events on bus
func WithEventBus(bus EventBus.BusPublisher) Option {
	return func(s *Service) { s.bus = bus }
}

func WithRecommendSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recommendSize = n
		}
	}
}

// WithRandSeed makes recommendation sampling reproducible
func WithRandSeed(seed int64) Option {
	return func(s *Service) { s.rnd = rand.New(rand.NewSource(seed)) }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		cache:         NewMemoryFeaturedCache(10 * time.Minute),
		recommendSize: DefaultRecommendSize,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateDraft(d *Draft) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Image = strings.TrimSpace(d.Image)

	switch {
	case d.Name == "":
		return domain.NewValidationError("name", "is required")
	case d.Description == "":
		return domain.NewValidationError("description", "is required")
	case d.Price == nil:
		return domain.NewValidationError("price", "is required")
	case d.Price.IsNegative():
		return domain.NewValidationError("price", "must be greater than or equal to 0")
	case d.Category == "":
		return domain.NewValidationError("category", "is required")
	case !domain.IsCategory(d.Category):
		return domain.NewValidationError("category", "unknown category "+d.Category)
	}
	return nil
}

// Create validates the draft and persists a new, not featured product
func (s *Service) Create(ctx context.Context, d Draft) (*domain.Product, error) {
	if err := validateDraft(&d); err != nil {
		return nil, err
	}

	image := d.Image
	if s.images != nil && IsDataURI(image) {
		ref, err := s.images.Put(ctx, image)
		if err != nil {
			return nil, err
		}
		image = ref
	}

	now := s.now().UTC()
	p := &domain.Product{
		ID:          common.UUIDint64(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price.Round(2),
		Category:    d.Category,
		Image:       image,
		IsFeatured:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		if image != d.Image {
			s.dropImage(ctx, image)
		}
		return nil, err
	}

	metrics.Incr("catalog_product_created")
	s.publish(ctx, TopicCreated, *p)
	return p, nil
}

// GetAll returns every product in persisted order
func (s *Service) GetAll(ctx context.Context) ([]domain.Product, error) {
	return s.store.List(ctx)
}

// GetByCategory returns the products of a known category
func (s *Service) GetByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if !domain.IsCategory(category) {
		return nil, domain.NotFoundf("category %q", category)
	}
	return s.store.ListByCategory(ctx, category)
}

// GetFeatured serves the featured list from the cache, filling it on a miss
func (s *Service) GetFeatured(ctx context.Context) ([]domain.Product, error) {
	items, ok, err := s.cache.Get(ctx)
	if err != nil {
		zap.L().Warn("featured cache read failed", zap.Error(err))
	} else if ok {
		return items, nil
	}

	v, err, _ := s.sf.Do("featured", func() (interface{}, error) {
		gen := s.gen.Load()
		items, err := s.store.ListFeatured(ctx)
		if err != nil {
			return nil, err
		}
		s.fillMu.Lock()
		defer s.fillMu.Unlock()
		if s.gen.Load() == gen {
			if err := s.cache.Set(ctx, items); err != nil {
				zap.L().Warn("featured cache write failed", zap.Error(err))
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// InvalidateFeatured drops the cached featured list. It returns once the
// cache no longer serves the old list.
func (s *Service) InvalidateFeatured(ctx context.Context) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.gen.Add(1)
	if err := s.cache.Invalidate(ctx); err != nil {
		zap.L().Error("featured cache invalidation failed", zap.Error(err))
	}
}

// RefreshFeatured reloads the featured list into the cache
func (s *Service) RefreshFeatured(ctx context.Context) error {
	s.InvalidateFeatured(ctx)
	_, err := s.GetFeatured(ctx)
	return err
}

// GetRecommended returns a uniform random sample of up to size distinct
// products. size <= 0 uses the configured default.
func (s *Service) GetRecommended(ctx context.Context, size int) ([]domain.Product, error) {
	if size <= 0 {
		size = s.recommendSize
	}
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	picked := s.sample(ids, size)
	products, err := s.store.ListByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}

	// keep the sampled order rather than persisted order
	pos := make(map[int64]int, len(picked))
	for i, id := range picked {
		pos[id] = i
	}
	out := make([]domain.Product, len(picked))
	n := 0
	for _, p := range products {
		if i, ok := pos[p.ID]; ok {
			out[i] = p
			n++
		}
	}
	if n == len(picked) {
		return out, nil
	}
	// some ids were deleted between the two reads
	compact := make([]domain.Product, 0, n)
	for _, p := range out {
		if p.ID != 0 {
			compact = append(compact, p)
		}
	}
	return compact, nil
}

// sample draws k distinct ids with a partial Fisher-Yates shuffle
func (s *Service) sample(ids []int64, k int) []int64 {
	pool := make([]int64, len(ids))
	copy(pool, ids)
	if k > len(pool) {
		k = len(pool)
	}
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	for i := 0; i < k; i++ {
		j := i + s.rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Search matches term against name and description, ignoring case.
// A blank term matches nothing and does not reach the store.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Product{}, nil
	}
	metrics.Incr("catalog_search")
	return s.store.Search(ctx, term)
}

// ToggleFeatured flips the featured flag of a product
func (s *Service) ToggleFeatured(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.store.ToggleFeatured(ctx, id)
	if err != nil {
		return nil, err
	}
	s.InvalidateFeatured(ctx)
	s.publish(ctx, TopicFeatured, *p)
	return p, nil
}

// Delete removes a product together with its stored image
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.dropImage(ctx, p.Image)
	// p may predate a concurrent toggle, so its flag cannot gate this
	s.InvalidateFeatured(ctx)
	s.publish(ctx, TopicDeleted, *p)
	return nil
}

func (s *Service) dropImage(ctx context.Context, ref string) {
	if s.images == nil || ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		zap.L().Error("failed to delete product image", zap.String("image", ref), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, topic string, p domain.Product) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, Event{
		Topic:   topic,
		Product: p,
		OprID:   OperatorFrom(ctx),
		Time:    s.now().UTC(),
	})
}

package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughshop/internal/domain"
)

func TestService_CreateThenGetAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draft("  Slim Jeans ", "Blue denim", "jeans"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Slim Jeans", created.Name)
	assert.False(t, created.IsFeatured)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)

	matches := 0
	for _, p := range all {
		if p.ID == created.ID {
			matches++
			assert.False(t, p.IsFeatured)
			assert.Equal(t, "Slim Jeans", p.Name)
			assert.True(t, p.Price.Equal(*price("19.99")))
		}
	}
	assert.Equal(t, 1, matches)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"missing name", Draft{Description: "d", Price: price("1"), Category: "shoes"}, "name"},
		{"blank name", Draft{Name: "   ", Description: "d", Price: price("1"), Category: "shoes"}, "name"},
		{"missing description", Draft{Name: "n", Price: price("1"), Category: "shoes"}, "description"},
		{"missing price", Draft{Name: "n", Description: "d", Category: "shoes"}, "price"},
		{"negative price", Draft{Name: "n", Description: "d", Price: price("-5"), Category: "shoes"}, "price"},
		{"missing category", Draft{Name: "n", Description: "d", Price: price("1")}, "category"},
		{"unknown category", Draft{Name: "n", Description: "d", Price: price("1"), Category: "boats"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			_, err := svc.Create(ctx, tt.draft)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)

			all, err := svc.GetAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestService_ZeroPriceIsValid(t *testing.T) {
	svc, _ := newTestService(t)
	d := draft("Sample", "Free sample", "skincare")
	d.Price = price("0")

	p, err := svc.Create(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, p.Price.IsZero())
}

func TestService_ToggleFeaturedTwiceRestores(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, draft("Runner", "Running shoe", "shoes"))
	require.NoError(t, err)

	once, err := svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, once.IsFeatured)

	twice, err := svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.IsFeatured, twice.IsFeatured)
}

func TestService_MissingIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ToggleFeatured(ctx, 12345)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.Delete(ctx, 12345)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestService_DeleteHidesProductEverywhere(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	keep, err := svc.Create(ctx, draft("Tote", "Canvas bag", "bags"))
	require.NoError(t, err)
	gone, err := svc.Create(ctx, draft("Satchel", "Leather bag", "bags"))
	require.NoError(t, err)
	_, err = svc.ToggleFeatured(ctx, gone.ID)
	require.NoError(t, err)

	// warm the featured cache with the doomed product in it
	featured, err := svc.GetFeatured(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{gone.ID}, ids(featured))

	require.NoError(t, svc.Delete(ctx, gone.ID))

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, ids(all))

	byCat, err := svc.GetByCategory(ctx, "bags")
	require.NoError(t, err)
	assert.NotContains(t, ids(byCat), gone.ID)

	featured, err = svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Empty(t, featured)

	found, err := svc.Search(ctx, "bag")
	require.NoError(t, err)
	assert.NotContains(t, ids(found), gone.ID)

	rec, err := svc.GetRecommended(ctx, 10)
	require.NoError(t, err)
	assert.NotContains(t, ids(rec), gone.ID)

	assert.True(t, errors.Is(svc.Delete(ctx, gone.ID), domain.ErrNotFound))
}

func TestService_DeleteAfterConcurrentToggle(t *testing.T) {
	store := &staleStore{Store: NewGormStore(newTestDB(t))}
	svc := NewService(store, WithRandSeed(42))
	ctx := context.Background()

	p, err := svc.Create(ctx, draft("Duffel", "Weekend bag", "bags"))
	require.NoError(t, err)
	_, err = svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	featured, err := svc.GetFeatured(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{p.ID}, ids(featured))

	// Delete sees the product as not featured, the cache holds it as featured
	require.NoError(t, svc.Delete(ctx, p.ID))

	featured, err = svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Empty(t, featured)
}

func TestService_GetByCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, draft("A", "straight cut", "jeans"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, draft("B", "sneaker", "shoes"))
	require.NoError(t, err)

	jeans, err := svc.GetByCategory(ctx, "jeans")
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(jeans))

	books, err := svc.GetByCategory(ctx, "books")
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	_, err = svc.GetByCategory(ctx, "boats")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestService_GetRecommended(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.GetRecommended(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, draft(fmt.Sprintf("Book %d", i), "paperback", "books"))
		require.NoError(t, err)
	}

	// fewer products than requested: all of them
	small, err := svc.GetRecommended(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, small, 2)

	for i := 2; i < 10; i++ {
		_, err := svc.Create(ctx, draft(fmt.Sprintf("Book %d", i), "paperback", "books"))
		require.NoError(t, err)
	}

	for round := 0; round < 50; round++ {
		for _, n := range []int{1, 3, 7} {
			rec, err := svc.GetRecommended(ctx, n)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(rec), n)

			seen := make(map[int64]bool)
			for _, p := range rec {
				assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
				seen[p.ID] = true
			}
		}
	}

	def, err := svc.GetRecommended(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, def, DefaultRecommendSize)
}

func TestService_SampleCoversCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	pool := []int64{1, 2, 3, 4, 5}

	hits := make(map[int64]int)
	for i := 0; i < 500; i++ {
		for _, id := range svc.sample(pool, 2) {
			hits[id]++
		}
	}
	// every id is drawn; with 1000 draws over 5 ids each expects ~200
	for _, id := range pool {
		assert.Greater(t, hits[id], 100, "id %d drawn %d times", id, hits[id])
	}
}

func TestService_Search(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	phone, err := svc.Create(ctx, draft("Pixel Phone", "An android handset", "mobile phones"))
	require.NoError(t, err)
	watch, err := svc.Create(ctx, draft("Fitness Band", "Tracks steps, pairs with your PHONE", "smart watches"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, draft("Trail Boot", "Waterproof leather", "shoes"))
	require.NoError(t, err)
	pct, err := svc.Create(ctx, draft("Promo 100% cotton", "T-shirt", "t-shirts"))
	require.NoError(t, err)

	t.Run("blank term skips the store", func(t *testing.T) {
		before := store.searches.Load()
		for _, term := range []string{"", "   ", "\t\n"} {
			got, err := svc.Search(ctx, term)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		}
		assert.Equal(t, before, store.searches.Load())
	})

	t.Run("name or description, any case", func(t *testing.T) {
		got, err := svc.Search(ctx, "pHoNe")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{phone.ID, watch.ID}, ids(got))
		for _, p := range got {
			hay := strings.ToLower(p.Name + " " + p.Description)
			assert.Contains(t, hay, "phone")
		}
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		got, err := svc.Search(ctx, "100%")
		require.NoError(t, err)
		assert.Equal(t, []int64{pct.ID}, ids(got))

		got, err = svc.Search(ctx, "_")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := svc.Search(ctx, "submarine")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestService_SearchUnicode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	eclair, err := svc.Create(ctx, draft("Éclair Jacket", "Quilted lining", "jackets"))
	require.NoError(t, err)
	sneaker, err := svc.Create(ctx, draft("City Sneaker", "Made for ÖSTERREICH streets", "shoes"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, draft("Eclair Mug", "Plain ascii spelling", "books"))
	require.NoError(t, err)

	tests := []struct {
		term string
		want []int64
	}{
		{"Éclair", []int64{eclair.ID}},
		{"éclair", []int64{eclair.ID}},
		{"ÉCLAIR", []int64{eclair.ID}},
		{"éClAiR jAcKeT", []int64{eclair.ID}},
		{"österreich", []int64{sneaker.ID}},
		{"ÖSTERREICH", []int64{sneaker.ID}},
		{"Österreich streets", []int64{sneaker.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	// name and description are not joined into one searchable run
	got, err := svc.Search(ctx, "jacket quilted")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_FeaturedCache(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, draft("Camera", "Mirrorless", "cameras"))
	require.NoError(t, err)

	got, err := svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	// second read is served from the cache
	_, err = svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.featured.Load())

	// toggle invalidates before returning
	_, err = svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	got, err = svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{p.ID}, ids(got))
	assert.Equal(t, int32(2), store.featured.Load())

	// deleting a product that is not featured keeps the cache
	other, err := svc.Create(ctx, draft("Lens", "50mm prime", "cameras"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, other.ID))
	_, err = svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.featured.Load())
}

func TestService_FeaturedConcurrentReads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, draft("Console", "Handheld", "Gaming consoles"))
	require.NoError(t, err)
	_, err = svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.GetFeatured(ctx)
			assert.NoError(t, err)
			assert.Equal(t, []int64{p.ID}, ids(got))
		}()
	}
	wg.Wait()
}

func TestService_Images(t *testing.T) {
	images, err := OpenBoltImageStore(filepath.Join(t.TempDir(), "images.db"))
	require.NoError(t, err)
	defer images.Close()

	svc, _ := newTestService(t, WithImageStore(images))
	ctx := context.Background()

	payload := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	d := draft("Sunglasses", "Polarized", "glasses")
	d.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	p, err := svc.Create(ctx, d)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.Image, ImageRefPrefix))

	key, ok := ImageKey(p.Image)
	require.True(t, ok)
	img, err := images.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, payload, img.Data)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = images.Get(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// external URLs are kept as given
	d.Image = "https://cdn.example.com/glasses.png"
	p, err = svc.Create(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/glasses.png", p.Image)

	d.Image = "data:text/plain;base64,aGVsbG8="
	_, err = svc.Create(ctx, d)
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestService_InlineImageWithoutStore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d := draft("Camera", "Mirrorless body", "cameras")
	d.Image = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xff, 0xd8}, 48*1024))

	p, err := svc.Create(ctx, d)
	require.NoError(t, err)
	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, p.ID, all[0].ID)
	assert.Equal(t, d.Image, all[0].Image)
}

func TestService_PublishesEvents(t *testing.T) {
	bus := EventBus.New()
	var mu sync.Mutex
	var got []Event
	record := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	}
	for _, topic := range []string{TopicCreated, TopicFeatured, TopicDeleted} {
		require.NoError(t, bus.Subscribe(topic, record))
	}

	svc, _ := newTestService(t, WithEventBus(bus))
	ctx := WithOperator(context.Background(), 7)

	p, err := svc.Create(ctx, draft("Blazer", "Wool", "suits"))
	require.NoError(t, err)
	_, err = svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))

	// failures publish nothing
	_, _ = svc.Create(ctx, Draft{})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, TopicCreated, got[0].Topic)
	assert.Equal(t, TopicFeatured, got[1].Topic)
	assert.True(t, got[1].Product.IsFeatured)
	assert.Equal(t, TopicDeleted, got[2].Topic)
	for _, e := range got {
		assert.Equal(t, int64(7), e.OprID)
		assert.Equal(t, p.ID, e.Product.ID)
	}
}

func TestService_ExportCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, draft("Parka", "Warm, hooded", "jackets"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,description,price,category,image,is_featured,created_at", lines[0])
	assert.Contains(t, lines[1], `"Warm, hooded"`)
	assert.Contains(t, lines[1], "19.99")
}

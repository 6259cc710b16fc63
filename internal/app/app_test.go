package app

import (
	"context"
	"errors"
	"testing"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughshop/config"
	"github.com/talkincode/toughshop/internal/analytics"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/internal/webserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := *config.DefaultAppConfig
	cfg.Web.Secret = "app-test-secret"
	a := NewApplication(&cfg)
	a.OverrideDB(db)
	require.NoError(t, a.MigrateDB(false))

	a.bus = EventBus.New()
	require.NoError(t, a.subscribeOprLog())
	a.users = NewGormUserRepository(db)
	a.catalog = catalog.NewService(catalog.NewGormStore(db), catalog.WithEventBus(a.bus))
	a.analytics = analytics.NewAggregator(db)
	return a
}

func TestOprLogFollowsCatalogEvents(t *testing.T) {
	a := newTestApp(t)
	ctx := catalog.WithOperator(context.Background(), 42)

	price := decimal.NewFromInt(5)
	p, err := a.catalog.Create(ctx, catalog.Draft{
		Name: "Notebook", Description: "Dotted paper", Price: &price, Category: "books",
	})
	require.NoError(t, err)
	_, err = a.catalog.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, a.catalog.Delete(ctx, p.ID))

	var logs []domain.OprLog
	require.NoError(t, a.DB().Order("id asc").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, "product_create", logs[0].OptAction)
	assert.Equal(t, "product_feature", logs[1].OptAction)
	assert.Contains(t, logs[1].OptDesc, "featured=true")
	assert.Equal(t, "product_delete", logs[2].OptAction)
	for _, l := range logs {
		assert.Equal(t, int64(42), l.OprID)
	}
}

func TestPurgeOprLog(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()
	require.NoError(t, a.DB().Create(&domain.OprLog{ID: 1, OptAction: "x", OptTime: now.AddDate(0, 0, -400)}).Error)
	require.NoError(t, a.DB().Create(&domain.OprLog{ID: 2, OptAction: "x", OptTime: now.AddDate(0, 0, -10)}).Error)

	assert.Zero(t, a.purgeOprLog(0))
	assert.Equal(t, int64(1), a.purgeOprLog(365))

	var left []domain.OprLog
	require.NoError(t, a.DB().Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, int64(2), left[0].ID)
}

func TestCheckAdmin(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	a.checkAdmin()
	admin, err := a.users.FindByEmail(ctx, defaultAdminEmail)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	// a demoted admin is repaired, not duplicated
	require.NoError(t, a.users.SetRole(ctx, admin.ID, domain.RoleCustomer))
	a.checkAdmin()
	again, err := a.users.FindByEmail(ctx, defaultAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
	assert.True(t, again.IsAdmin())

	var count int64
	require.NoError(t, a.DB().Model(&domain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckDemoProducts(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	a.checkDemoProducts()
	all, err := a.catalog.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(demoProducts))

	featured, err := a.catalog.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Len(t, featured, (len(demoProducts)+1)/2)

	// seeding is skipped once the catalog has data
	a.checkDemoProducts()
	all, err = a.catalog.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(demoProducts))
}

func TestMintToken(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	a.checkAdmin()
	admin, err := a.users.FindByEmail(ctx, defaultAdminEmail)
	require.NoError(t, err)

	tok, err := a.MintToken(ctx, admin.ID)
	require.NoError(t, err)

	claims := new(webserver.Claims)
	_, err = jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(a.Config().Web.Secret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.Subject)

	_, err = a.MintToken(ctx, 12345)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMintTokenNeedsConfiguredSecret(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	a.checkAdmin()
	admin, err := a.users.FindByEmail(ctx, defaultAdminEmail)
	require.NoError(t, err)

	a.Config().Web.Secret = ""
	_, err = a.MintToken(ctx, admin.ID)
	assert.Error(t, err)

	require.True(t, a.Config().Web.EnsureSecret())
	_, err = a.MintToken(ctx, admin.ID)
	assert.Error(t, err)
}

func TestMigrateBackfillsSearchText(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	price := decimal.NewFromInt(80)
	p, err := a.catalog.Create(ctx, catalog.Draft{
		Name: "Ōsaka Denim", Description: "Selvedge", Price: &price, Category: "jeans",
	})
	require.NoError(t, err)
	// rows from before the column existed carry no search text
	require.NoError(t, a.DB().Model(&domain.Product{}).Where("id = ?", p.ID).UpdateColumn("search_text", "").Error)
	found, err := a.catalog.Search(ctx, "ōsaka")
	require.NoError(t, err)
	require.Empty(t, found)

	require.NoError(t, a.MigrateDB(false))
	found, err = a.catalog.Search(ctx, "ŌSAKA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)
}

func TestGetDatabaseRejectsUnknownType(t *testing.T) {
	_, err := getDatabase(config.DBConfig{Type: "oracle"}, t.TempDir())
	assert.Error(t, err)
}

func TestInitAndRelease(t *testing.T) {
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false
	cfg.Catalog.SeedDemo = true

	a := NewApplication(&cfg)
	require.NoError(t, a.Init(&cfg))
	defer a.Release()

	require.NotNil(t, a.Catalog())
	require.NotNil(t, a.Images())
	require.NotNil(t, a.Analytics())
	require.NotNil(t, a.Scheduler())
	assert.NotEmpty(t, cfg.Web.Secret)
	assert.True(t, cfg.Web.SecretGenerated())

	products, err := a.Catalog().GetAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	report, err := a.Analytics().Report(context.Background(), 7, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(products)), report.Summary.Products)
	assert.Equal(t, int64(1), report.Summary.Users)
}

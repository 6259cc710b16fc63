package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughshop/config"
	"github.com/talkincode/toughshop/internal/analytics"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/internal/webserver"
	"github.com/talkincode/toughshop/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	redis     *redis.Client
	images    *catalog.BoltImageStore
	users     *GormUserRepository
	catalog   *catalog.Service
	analytics *analytics.Aggregator
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ AnalyticsProvider = (*Application)(nil)
	_ UsersProvider     = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

// Images nil when the image store could not be opened
func (a *Application) Images() catalog.ImageStore {
	if a.images == nil {
		return nil
	}
	return a.images
}

func (a *Application) Analytics() *analytics.Aggregator {
	return a.analytics
}

func (a *Application) Users() *GormUserRepository {
	return a.users
}

func initLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if !cfg.Logger.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}

	// json to the rotated file, console to stdout
	rotated := &lumberjack.Logger{
		Filename:   cfg.Logger.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	zap.ReplaceGlobals(logger)

	if err := cfg.InitDirs(); err != nil {
		return err
	}

	if cfg.Web.EnsureSecret() {
		zap.S().Warn("web.secret is not configured, using a random secret; " +
			"tokens from the auth service will be rejected and none survive a restart")
	}

	if err := metrics.InitMetrics(cfg.GetMetricsDir()); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.gormDB, err = getDatabase(cfg.Database, cfg.GetDataDir())
	if err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		return errors.Wrap(err, "migrate database")
	}

	a.bus = EventBus.New()
	if err := a.subscribeOprLog(); err != nil {
		return err
	}

	a.users = NewGormUserRepository(a.gormDB)
	a.catalog = catalog.NewService(catalog.NewGormStore(a.gormDB), a.catalogOptions(cfg)...)
	a.analytics = analytics.NewAggregator(a.gormDB)

	a.checkAdmin()
	if cfg.Catalog.SeedDemo {
		a.checkDemoProducts()
	}

	a.initJob()
	return nil
}

func (a *Application) catalogOptions(cfg *config.AppConfig) []catalog.Option {
	ttl := time.Duration(cfg.Cache.TTL) * time.Second
	opts := []catalog.Option{
		catalog.WithEventBus(a.bus),
		catalog.WithRecommendSize(cfg.Catalog.RecommendSize),
		catalog.WithFeaturedCache(a.featuredCache(cfg, ttl)),
	}

	images, err := catalog.OpenBoltImageStore(cfg.GetImageDBPath())
	if err != nil {
		zap.L().Error("image store unavailable, images stay inline", zap.Error(err))
	} else {
		a.images = images
		opts = append(opts, catalog.WithImageStore(images))
	}
	return opts
}

// featuredCache returns the configured cache, falling back to memory when
// redis cannot be reached at startup
func (a *Application) featuredCache(cfg *config.AppConfig, ttl time.Duration) catalog.FeaturedCache {
	if cfg.Cache.Type != "redis" {
		return catalog.NewMemoryFeaturedCache(ttl)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Error("redis unavailable, using memory cache",
			zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		_ = client.Close()
		return catalog.NewMemoryFeaturedCache(ttl)
	}
	a.redis = client
	zap.S().Infof("Featured cache backed by redis at %s", cfg.Cache.RedisAddr)
	return catalog.NewRedisFeaturedCache(client, ttl)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	if err = db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return err
	}
	return backfillSearchText(db)
}

// backfillSearchText folds name and description for rows written before the
// search_text column existed
func backfillSearchText(db *gorm.DB) error {
	var stale []domain.Product
	err := db.Select("id", "name", "description").
		Where("search_text IS NULL OR search_text = ''").
		Find(&stale).Error
	if err != nil {
		return err
	}
	for _, p := range stale {
		text := domain.ProductSearchText(p.Name, p.Description)
		if err := db.Model(&domain.Product{}).Where("id = ?", p.ID).Update("search_text", text).Error; err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		zap.S().Infof("search text backfilled for %d products", len(stale))
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// MintToken signs a session token for an existing user
func (a *Application) MintToken(ctx context.Context, userID int64) (string, error) {
	user, err := a.users.FindUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if a.appConfig.Web.Secret == "" || a.appConfig.Web.SecretGenerated() {
		return "", errors.New("web.secret is not configured, a minted token could not be verified by the server")
	}
	ttl := time.Duration(a.appConfig.Web.TokenTTL) * time.Hour
	return webserver.IssueToken(a.appConfig.Web.Secret, user, ttl)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.images != nil {
		if err := a.images.Close(); err != nil {
			zap.L().Error("close image store", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}

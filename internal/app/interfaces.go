package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughshop/config"
	"github.com/talkincode/toughshop/internal/analytics"
	"github.com/talkincode/toughshop/internal/catalog"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// CatalogProvider provides the product catalog and its image store
type CatalogProvider interface {
	Catalog() *catalog.Service
	Images() catalog.ImageStore
}

// AnalyticsProvider provides the dashboard aggregator
type AnalyticsProvider interface {
	Analytics() *analytics.Aggregator
}

// UsersProvider provides account lookups for session checks
type UsersProvider interface {
	Users() *GormUserRepository
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	CatalogProvider
	AnalyticsProvider
	UsersProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// MintToken signs a session token for an existing user
	MintToken(ctx context.Context, userID int64) (string, error)
}

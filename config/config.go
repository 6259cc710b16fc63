package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secret   string `yaml:"secret"`    // HS256 secret shared with the auth service
	TokenTTL int    `yaml:"token_ttl"` // lifetime of minted tokens in hours

	secretGenerated bool
}

// EnsureSecret fills an empty Secret with a random one and reports whether it did.
// Tokens signed with a generated secret die with the process.
func (w *WebConfig) EnsureSecret() bool {
	if strings.TrimSpace(w.Secret) != "" {
		return false
	}
	w.Secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	w.secretGenerated = true
	return true
}

// SecretGenerated reports whether Secret came from EnsureSecret
func (w *WebConfig) SecretGenerated() bool {
	return w.secretGenerated
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// CacheConfig featured products cache configuration
type CacheConfig struct {
	Type          string `yaml:"type"` // memory or redis
	TTL           int    `yaml:"ttl"`  // seconds
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// CatalogConfig catalog behaviour
type CatalogConfig struct {
	RecommendSize int  `yaml:"recommend_size"`
	SeedDemo      bool `yaml:"seed_demo"`
}

// AnalyticsConfig dashboard behaviour
type AnalyticsConfig struct {
	DefaultDays      int `yaml:"default_days"`
	OprLogRetentDays int `yaml:"oprlog_retent_days"`
}

// AppConfig application configuration
type AppConfig struct {
	System    SysConfig       `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DBConfig        `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Logger    LogConfig       `yaml:"logger"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// GetImageDBPath bbolt file holding uploaded product images
func (c *AppConfig) GetImageDBPath() string {
	return filepath.Join(c.GetDataDir(), "images.db")
}

func (c *AppConfig) GetMetricsDir() string {
	return filepath.Join(c.System.Workdir, "metrics")
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetMetricsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ToughShop",
		Location: "UTC",
		Workdir:  "/var/toughshop",
		Debug:    false,
	},
	Web: WebConfig{
		Host:     "0.0.0.0",
		Port:     5000,
		TokenTTL: 24 * 7,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "toughshop.db",
		User:     "postgres",
		Passwd:   "postgres",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Cache: CacheConfig{
		Type:      "memory",
		TTL:       600,
		RedisAddr: "127.0.0.1:6379",
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/toughshop/logs/toughshop.log",
	},
	Catalog: CatalogConfig{
		RecommendSize: 3,
		SeedDemo:      false,
	},
	Analytics: AnalyticsConfig{
		DefaultDays:      7,
		OprLogRetentDays: 365,
	},
}

// LoadConfig reads cfile (when present), loads .env and applies environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "toughshop.yml"
	}
	data, err := os.ReadFile(cfile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	case os.IsNotExist(err):
		// defaults plus environment
	default:
		return nil, errors.Wrapf(err, "read config %s", cfile)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func (c *AppConfig) applyEnvOverrides() {
	setEnvValue("TOUGHSHOP_SYSTEM_WORKER_DIR", &c.System.Workdir)
	setEnvValue("TOUGHSHOP_SYSTEM_LOCATION", &c.System.Location)
	setEnvBoolValue("TOUGHSHOP_SYSTEM_DEBUG", &c.System.Debug)

	setEnvValue("TOUGHSHOP_WEB_HOST", &c.Web.Host)
	setEnvIntValue("TOUGHSHOP_WEB_PORT", &c.Web.Port)
	setEnvValue("TOUGHSHOP_WEB_SECRET", &c.Web.Secret)
	setEnvIntValue("TOUGHSHOP_WEB_TOKEN_TTL", &c.Web.TokenTTL)

	setEnvValue("TOUGHSHOP_DB_TYPE", &c.Database.Type)
	setEnvValue("TOUGHSHOP_DB_HOST", &c.Database.Host)
	setEnvIntValue("TOUGHSHOP_DB_PORT", &c.Database.Port)
	setEnvValue("TOUGHSHOP_DB_NAME", &c.Database.Name)
	setEnvValue("TOUGHSHOP_DB_USER", &c.Database.User)
	setEnvValue("TOUGHSHOP_DB_PWD", &c.Database.Passwd)
	setEnvIntValue("TOUGHSHOP_DB_MAX_CONN", &c.Database.MaxConn)
	setEnvBoolValue("TOUGHSHOP_DB_DEBUG", &c.Database.Debug)

	setEnvValue("TOUGHSHOP_CACHE_TYPE", &c.Cache.Type)
	setEnvIntValue("TOUGHSHOP_CACHE_TTL", &c.Cache.TTL)
	setEnvValue("TOUGHSHOP_REDIS_ADDR", &c.Cache.RedisAddr)
	setEnvValue("TOUGHSHOP_REDIS_PASSWORD", &c.Cache.RedisPassword)
	setEnvIntValue("TOUGHSHOP_REDIS_DB", &c.Cache.RedisDB)

	setEnvValue("TOUGHSHOP_LOGGER_MODE", &c.Logger.Mode)
	setEnvBoolValue("TOUGHSHOP_LOGGER_FILE_ENABLE", &c.Logger.FileEnable)

	setEnvIntValue("TOUGHSHOP_RECOMMEND_SIZE", &c.Catalog.RecommendSize)
	setEnvBoolValue("TOUGHSHOP_SEED_DEMO", &c.Catalog.SeedDemo)
	setEnvIntValue("TOUGHSHOP_ANALYTICS_DAYS", &c.Analytics.DefaultDays)
}

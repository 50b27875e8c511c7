package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type Env string

const (
	EnvLocal  Env = "local"
	EnvDocker Env = "docker"
)

type Backend string

const (
	BackendFile  Backend = "file"
	BackendMySQL Backend = "mysql"
	BackendRedis Backend = "redis"
	BackendMongo Backend = "mongo"
)

const (
	AuditFailureWarn   = "warn"
	AuditFailureRevert = "revert"

	CorruptStateAbort  = "abort"
	CorruptStateReinit = "reinit"
)

type Config struct {
	AppEnv Env `env:"APP_ENV" envDefault:"local"`

	StorageBackend Backend `env:"STORAGE_BACKEND" envDefault:"file"`
	AuditBackend   Backend `env:"AUDIT_BACKEND" envDefault:"file"`
	InventoryFile  string  `env:"INVENTORY_FILE" envDefault:"inventory.json"`
	AuditLogFile   string  `env:"AUDIT_LOG_FILE" envDefault:"staff_log.txt"`

	// network backends; empty means the per-environment default
	MySQLDSN       string        `env:"MYSQL_DSN"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"stockkeeper:"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDBName    string        `env:"MONGO_DB" envDefault:"stockkeeper"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`

	LowStockThreshold  int    `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
	AuditFailurePolicy string `env:"AUDIT_FAILURE_POLICY" envDefault:"warn"`
	CorruptStatePolicy string `env:"CORRUPT_STATE_POLICY" envDefault:"abort"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"1234"`
	StaffUsername string `env:"STAFF_USERNAME" envDefault:"staff"`
	StaffPassword string `env:"STAFF_PASSWORD" envDefault:"1111"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.AppEnv != EnvLocal && cfg.AppEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", cfg.AppEnv)
	}

	host := "localhost"
	if cfg.AppEnv == EnvDocker {
		host = ""
	}
	if cfg.MySQLDSN == "" {
		cfg.MySQLDSN = fmt.Sprintf("root:root@tcp(%s:3306)/stockkeeper?parseTime=true&multiStatements=true", pick(host, "mysql"))
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = pick(host, "redis") + ":6379"
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://" + pick(host, "mongo") + ":27017"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func pick(local, docker string) string {
	if local != "" {
		return local
	}
	return docker
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendMySQL, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %s (must be file/mysql/redis/mongo)", c.StorageBackend)
	}
	switch c.AuditBackend {
	case BackendFile, BackendMySQL, BackendRedis:
	default:
		return fmt.Errorf("invalid AUDIT_BACKEND: %s (must be file/mysql/redis)", c.AuditBackend)
	}

	if c.StorageBackend == BackendFile && c.InventoryFile == "" {
		return fmt.Errorf("INVENTORY_FILE is required")
	}
	if c.AuditBackend == BackendFile && c.AuditLogFile == "" {
		return fmt.Errorf("AUDIT_LOG_FILE is required")
	}
	if c.uses(BackendMySQL) {
		if _, err := mysql.ParseDSN(c.MySQLDSN); err != nil {
			return fmt.Errorf("invalid MYSQL_DSN: %w", err)
		}
	}
	if c.uses(BackendMongo) && c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB is required")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be positive")
	}

	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD cannot be negative")
	}
	if c.AuditFailurePolicy != AuditFailureWarn && c.AuditFailurePolicy != AuditFailureRevert {
		return fmt.Errorf("invalid AUDIT_FAILURE_POLICY: %s (must be warn/revert)", c.AuditFailurePolicy)
	}
	if c.CorruptStatePolicy != CorruptStateAbort && c.CorruptStatePolicy != CorruptStateReinit {
		return fmt.Errorf("invalid CORRUPT_STATE_POLICY: %s (must be abort/reinit)", c.CorruptStatePolicy)
	}

	if c.AdminUsername == "" || c.StaffUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME and STAFF_USERNAME are required")
	}
	if c.AdminUsername == c.StaffUsername {
		return fmt.Errorf("ADMIN_USERNAME and STAFF_USERNAME must differ")
	}
	return nil
}

func (c Config) uses(b Backend) bool {
	return c.StorageBackend == b || c.AuditBackend == b
}

// Log writes the effective configuration with secrets masked.
func (c Config) Log(logger *zap.Logger) {
	logger.Info("config loaded",
		zap.String("app_env", string(c.AppEnv)),
		zap.String("storage_backend", string(c.StorageBackend)),
		zap.String("audit_backend", string(c.AuditBackend)),
		zap.String("inventory_file", c.InventoryFile),
		zap.String("audit_log_file", c.AuditLogFile),
		zap.String("mysql_dsn", maskMySQLDSN(c.MySQLDSN)),
		zap.String("redis_addr", c.RedisAddr),
		zap.String("mongo_uri", maskURI(c.MongoURI)),
		zap.String("mongo_db", c.MongoDBName),
		zap.Duration("connect_timeout", c.ConnectTimeout),
		zap.Int("low_stock_threshold", c.LowStockThreshold),
		zap.String("audit_failure_policy", c.AuditFailurePolicy),
		zap.String("corrupt_state_policy", c.CorruptStatePolicy),
	)
}

func maskMySQLDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "<invalid>"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "***"
	}
	return cfg.FormatDSN()
}

func maskURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

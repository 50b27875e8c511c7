package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/adapter/auth"
	"github.com/rl1809/stock-keeper/internal/adapter/storage"
	"github.com/rl1809/stock-keeper/internal/config"
	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
	"github.com/rl1809/stock-keeper/internal/logging"
	"github.com/rl1809/stock-keeper/internal/port"
)

// App holds the wired inventory gate and everything that must be released
// when the process exits.
type App struct {
	Logger            *zap.Logger
	Gate              *service.Gate
	Auth              port.Authenticator
	LowStockThreshold int

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Build connects the configured backends and loads the inventory.
func Build(ctx context.Context, cfg config.Config, serviceName string) (*App, error) {
	logger, err := logging.New(logging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	return BuildWithLogger(ctx, cfg, logger)
}

func BuildWithLogger(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Logger:            logger,
		LowStockThreshold: cfg.LowStockThreshold,
	}
	cfg.Log(logger)

	c := &connections{cfg: cfg, logger: logger, app: a}

	snapshots, err := c.snapshotRepository(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	audit, reader, err := c.auditBackend(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	store := service.NewRecordStore(snapshots, logger)
	if err := store.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrStorageCorrupt) || cfg.CorruptStatePolicy != config.CorruptStateReinit {
			a.Close(ctx)
			return nil, fmt.Errorf("load inventory: %w", err)
		}
		logger.Warn("inventory state is corrupt, starting empty", zap.Error(err))
	}

	policy := service.AuditFailureWarn
	if cfg.AuditFailurePolicy == config.AuditFailureRevert {
		policy = service.AuditFailureRevert
	}

	a.Gate = service.NewGate(store, audit, logger,
		service.WithAuditReader(reader),
		service.WithAuditFailurePolicy(policy),
	)
	a.Auth = auth.NewStaticAdapter(map[domain.Role]auth.Credentials{
		domain.RoleAdmin: {Username: cfg.AdminUsername, Password: cfg.AdminPassword},
		domain.RoleStaff: {Username: cfg.StaffUsername, Password: cfg.StaffPassword},
	})

	records, err := store.List(ctx)
	if err == nil {
		logger.Info("inventory loaded",
			zap.String("storage_backend", string(cfg.StorageBackend)),
			zap.Int("products", len(records)),
		)
	}
	return a, nil
}

// NewSession starts an unauthenticated operator session.
func (a *App) NewSession() *service.Session {
	return service.NewSession(a.Auth, a.Logger)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Error("close failed", zap.String("resource", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	logging.Sync(a.Logger)
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// connections opens each network backend at most once so storage and audit
// can share a client.
type connections struct {
	cfg    config.Config
	logger *zap.Logger
	app    *App

	mysql *storage.MySQLAdapter
	redis *storage.RedisAdapter
	mongo *storage.MongoAdapter
}

func (c *connections) snapshotRepository(ctx context.Context) (port.SnapshotRepository, error) {
	switch c.cfg.StorageBackend {
	case config.BackendFile:
		return storage.NewJSONFileAdapter(c.cfg.InventoryFile), nil
	case config.BackendMySQL:
		return c.mysqlAdapter(ctx)
	case config.BackendRedis:
		return c.redisAdapter(ctx)
	case config.BackendMongo:
		return c.mongoAdapter(ctx)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.cfg.StorageBackend)
	}
}

func (c *connections) auditBackend(ctx context.Context) (port.AuditLogger, port.AuditReader, error) {
	switch c.cfg.AuditBackend {
	case config.BackendFile:
		a := storage.NewAuditFileAdapter(c.cfg.AuditLogFile)
		return a, a, nil
	case config.BackendMySQL:
		a, err := c.mysqlAdapter(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case config.BackendRedis:
		a, err := c.redisAdapter(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("unsupported audit backend: %s", c.cfg.AuditBackend)
	}
}

func (c *connections) mysqlAdapter(ctx context.Context) (*storage.MySQLAdapter, error) {
	if c.mysql != nil {
		return c.mysql, nil
	}

	dsn, err := mysql.ParseDSN(c.cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	dsn.ParseTime = true
	dsn.MultiStatements = true

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	c.app.onClose("mysql", func(context.Context) error { return db.Close() })
	c.logger.Info("connected to mysql", zap.String("addr", dsn.Addr))

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(pingCtx); err != nil {
		return nil, fmt.Errorf("mysql schema: %w", err)
	}
	c.mysql = adapter
	return adapter, nil
}

func (c *connections) redisAdapter(ctx context.Context) (*storage.RedisAdapter, error) {
	if c.redis != nil {
		return c.redis, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.cfg.RedisAddr,
		DialTimeout: c.cfg.ConnectTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	c.app.onClose("redis", func(context.Context) error { return rdb.Close() })
	c.logger.Info("connected to redis", zap.String("addr", c.cfg.RedisAddr))

	c.redis = storage.NewRedisAdapter(rdb, c.cfg.RedisKeyPrefix)
	return c.redis, nil
}

func (c *connections) mongoAdapter(ctx context.Context) (*storage.MongoAdapter, error) {
	if c.mongo != nil {
		return c.mongo, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(c.cfg.MongoURI).
		SetServerSelectionTimeout(c.cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(connectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	c.app.onClose("mongo", func(ctx context.Context) error { return client.Disconnect(ctx) })
	c.logger.Info("connected to mongo", zap.String("db", c.cfg.MongoDBName))

	c.mongo = storage.NewMongoAdapter(client, c.cfg.MongoDBName)
	return c.mongo, nil
}

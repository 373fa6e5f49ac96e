package di

import (
	"context"

	"github.com/goliatone/go-metacache/cache"
	"github.com/goliatone/go-metacache/internal/metrics"
	"github.com/goliatone/go-metacache/meta"
	"github.com/goliatone/go-metacache/metastore"
	"github.com/goliatone/go-metacache/repositorycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Container wires the configured metadata store, cache backend, logger and
// metrics into the connection and model services. It owns every resource it
// opens; Close releases them.
type Container struct {
	config   Config
	logger   *zap.Logger
	registry *prometheus.Registry
	backend  cache.Backend
	db       *bun.DB

	connections *meta.Connections
	models      *meta.Models

	closers []func() error
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger replaces the logger built from the log section of the config.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithBackend replaces the cache backend selected by the config.
func WithBackend(backend cache.Backend) Option {
	return func(c *Container) {
		c.backend = backend
	}
}

// NewContainer validates config and builds every component it describes.
func NewContainer(ctx context.Context, config Config, opts ...Option) (_ *Container, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: config, registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(c)
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.logger == nil {
		if c.logger, err = config.logger(); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error {
			_ = c.logger.Sync()
			return nil
		})
	}

	collector, err := metrics.New(c.registry)
	if err != nil {
		return nil, err
	}

	if c.backend == nil {
		if err := c.openBackend(ctx); err != nil {
			return nil, err
		}
	}

	connTable, modelTable, err := c.openTables(ctx)
	if err != nil {
		return nil, err
	}

	keys := cache.NewDefaultKeySerializer("")
	if config.Cache.Backend == BackendRedis {
		keys = cache.NewDefaultKeySerializer(config.Cache.Redis.Prefix)
	}

	modelRepo := repositorycache.New(modelTable,
		cache.NewStore[*meta.Model](c.backend, cache.WithKeySerializer(keys)),
		repositorycache.Options{
			Scope:      "model",
			Logger:     c.logger,
			Metrics:    collector,
			UpdateMode: config.updateMode(),
		})
	connRepo := repositorycache.New(connTable,
		cache.NewStore[*meta.Connection](c.backend, cache.WithKeySerializer(keys)),
		repositorycache.Options{
			Scope:      "connection",
			Logger:     c.logger,
			Metrics:    collector,
			UpdateMode: config.updateMode(),
			Dependents: []repositorycache.Dependent{modelRepo},
		})

	crypto, err := meta.NewAESCrypto(config.Secret)
	if err != nil {
		return nil, err
	}

	c.models = meta.NewModels(modelRepo, c.logger)
	c.connections = meta.NewConnections(connRepo, crypto, meta.ConnectionsOptions{
		MetaDB: config.MetaDB,
		Models: c.models,
		Logger: c.logger,
	})

	c.logger.Debug("container ready",
		zap.String("store", config.Store.Driver),
		zap.String("cache", config.Cache.Backend),
		zap.String("update_mode", config.UpdateMode),
	)
	return c, nil
}

func (c *Container) openBackend(ctx context.Context) error {
	if c.config.Cache.Backend == BackendRedis {
		backend, closer, err := cache.NewRedisBackend(ctx, c.config.Cache.Redis.RedisConfig)
		if err != nil {
			return err
		}
		c.backend = backend
		c.closers = append(c.closers, closer)
		return nil
	}

	backend, err := cache.NewBackend(c.config.Cache.Local)
	if err != nil {
		return err
	}
	c.backend = backend
	return nil
}

func (c *Container) openTables(ctx context.Context) (metastore.Table[*meta.Connection], metastore.Table[*meta.Model], error) {
	if c.config.Store.Driver == DriverMemory {
		return metastore.NewMemoryTable(meta.NewConnection), metastore.NewMemoryTable(meta.NewModel), nil
	}

	db, err := metastore.Open(ctx, c.config.Store.Driver, c.config.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	c.db = db
	c.closers = append(c.closers, db.Close)

	connTable := metastore.NewBunTable(db, meta.NewConnection, metastore.TableOptions{ParentColumn: "project_id"})
	modelTable := metastore.NewBunTable(db, meta.NewModel, metastore.TableOptions{ParentColumn: "base_id"})
	if err := connTable.CreateTable(ctx); err != nil {
		return nil, nil, err
	}
	if err := modelTable.CreateTable(ctx); err != nil {
		return nil, nil, err
	}
	return connTable, modelTable, nil
}

// Connections returns the connection service.
func (c *Container) Connections() *meta.Connections {
	return c.connections
}

// Models returns the model service.
func (c *Container) Models() *meta.Models {
	return c.models
}

// Logger returns the logger shared by every component of the container.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Registry returns the registry holding the repository metrics.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Close releases the resources opened by NewContainer in reverse order.
func (c *Container) Close() error {
	var group errs.Group
	for i := len(c.closers) - 1; i >= 0; i-- {
		group.Add(c.closers[i]())
	}
	c.closers = nil
	return group.Err()
}

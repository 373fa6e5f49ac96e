package di

import (
	"bytes"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-metacache/cache"
	"github.com/goliatone/go-metacache/repositorycache"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ConfigError is the class of configuration load and validation failures.
var ConfigError = errs.Class("config")

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache backends.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// Update modes.
const (
	UpdateInPlace  = "in_place"
	UpdateRecreate = "recreate"
)

// Config is the container configuration, usually read from a YAML file.
type Config struct {
	Store      StoreConfig    `yaml:"store"`
	Cache      CacheConfig    `yaml:"cache"`
	Secret     string         `yaml:"secret"`
	MetaDB     map[string]any `yaml:"meta_db"`
	Log        LogConfig      `yaml:"log"`
	UpdateMode string         `yaml:"update_mode"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	Backend string           `yaml:"backend"`
	Local   cache.Config     `yaml:"local"`
	Redis   RedisCacheConfig `yaml:"redis"`
}

// RedisCacheConfig adds a key prefix to the redis backend options so that
// several deployments can share one database.
type RedisCacheConfig struct {
	cache.RedisConfig `yaml:",inline"`
	Prefix            string `yaml:"prefix"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a configuration backed by an in-memory store and
// the in-process cache. Secret has no default.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Driver: DriverMemory},
		Cache: CacheConfig{
			Backend: BackendLocal,
			Local:   cache.DefaultConfig(),
			Redis: RedisCacheConfig{
				RedisConfig: cache.RedisConfig{Addr: "localhost:6379", TTL: time.Hour},
				Prefix:      "metacache",
			},
		},
		MetaDB: map[string]any{
			"client":   "sqlite3",
			"filename": "noco.db",
		},
		Log:        LogConfig{Level: "info"},
		UpdateMode: UpdateInPlace,
	}
}

// LoadConfig reads path over DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, ConfigError.Wrap(err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, ConfigError.New("parse %s: %v", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration, including the options of the selected
// cache backend.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Secret, validation.Required),
		validation.Field(&c.UpdateMode, validation.Required, validation.In(UpdateInPlace, UpdateRecreate)),
		validation.Field(&c.Store),
		validation.Field(&c.Cache),
		validation.Field(&c.Log),
	)
	return ConfigError.Wrap(err)
}

func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverMemory, DriverSQLite, DriverPostgres)),
		validation.Field(&s.DSN, validation.When(s.Driver != DriverMemory, validation.Required)),
	)
}

func (c CacheConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendLocal, BackendRedis)),
	); err != nil {
		return err
	}
	if c.Backend == BackendRedis {
		return c.Redis.Validate()
	}
	return c.Local.Validate()
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(any) error {
			_, err := zap.ParseAtomicLevel(l.Level)
			return err
		})),
	)
}

func (c Config) updateMode() repositorycache.UpdateMode {
	if c.UpdateMode == UpdateRecreate {
		return repositorycache.UpdateRecreate
	}
	return repositorycache.UpdateInPlace
}

func (c Config) logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, ConfigError.Wrap(err)
	}

	zcfg := zap.NewProductionConfig()
	if c.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, ConfigError.Wrap(err)
	}
	return logger, nil
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"

	connectTimeout = 10 * time.Second
)

// Config selects and configures a session store backend.
type Config struct {
	Driver string       `mapstructure:"driver"`
	Redis  *RedisConfig `mapstructure:"redis"`
	Mongo  *MongoConfig `mapstructure:"mongo"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key-prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Closer releases backend connections.
type Closer func(ctx context.Context) error

func noopCloser(context.Context) error { return nil }

// Open builds the store selected by cfg. An empty driver means memory.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (interview.Store, Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := DriverMemory
	if cfg != nil && strings.TrimSpace(cfg.Driver) != "" {
		driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	}

	switch driver {
	case DriverMemory:
		logger.Info("using in-memory session store", zap.String("hint", "sessions are lost on restart"))
		return NewMemoryStore(), noopCloser, nil
	case DriverRedis:
		return openRedis(ctx, cfg.Redis, logger)
	case DriverMongo:
		return openMongo(ctx, cfg.Mongo, logger)
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (interview.Store, Closer, error) {
	if cfg == nil || strings.TrimSpace(cfg.Addr) == "" {
		return nil, nil, fmt.Errorf("store.redis.addr is required for the redis driver")
	}

	addr := strings.TrimPrefix(strings.TrimSpace(cfg.Addr), "redis://")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.Info("connected to redis session store",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
		zap.Duration("ttl", cfg.TTL),
	)

	return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), func(context.Context) error { return client.Close() }, nil
}

func openMongo(ctx context.Context, cfg *MongoConfig, logger *zap.Logger) (interview.Store, Closer, error) {
	if cfg == nil || strings.TrimSpace(cfg.URI) == "" {
		return nil, nil, fmt.Errorf("store.mongo.uri is required for the mongo driver")
	}

	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		database = "interviewer"
	}
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "sessions"
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to mongo session store",
		zap.String("database", database),
		zap.String("collection", collection),
	)

	store := NewMongoStore(client.Database(database).Collection(collection))
	return store, client.Disconnect, nil
}

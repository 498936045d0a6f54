package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/ai/gemini"
	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/notify"
	"github.com/spigell/applyflow/internal/pipeline"
	"github.com/spigell/applyflow/internal/secrets"
	"github.com/spigell/applyflow/internal/storage"
	"github.com/spigell/applyflow/internal/store"
)

const redisPingTimeout = 3 * time.Second

// runtime holds everything a command needs. Optional backends stay nil when
// they are disabled in the configuration.
type runtime struct {
	config   *Config
	logger   *zap.Logger
	db       *gorm.DB
	store    *store.Store
	resolver *credentials.Resolver
	files    *storage.Client
	redis    *redis.Client
	pipeline *pipeline.Pipeline
}

func newLogger() (*zap.Logger, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), zap.String("app", app))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return log, nil
}

func openDatabase(config *Config, log *zap.Logger) (*gorm.DB, error) {
	password, err := secrets.LoadOptional(secrets.Source{
		Name:  "database password",
		Value: config.Database.Password,
		File:  config.Database.PasswordFile,
		Env:   "APPLYFLOW_DB_PASSWORD",
	})
	if err != nil {
		return nil, err
	}

	log.Debug("connecting to database",
		zap.String("host", config.Database.Host),
		zap.Int("port", config.Database.Port),
		zap.String("name", config.Database.Name),
	)

	return database.InitDatabase(database.Config{
		Host:     config.Database.Host,
		Port:     config.Database.Port,
		Name:     config.Database.Name,
		User:     config.Database.User,
		Password: password,
		SSLMode:  config.Database.SSLMode,
		Debug:    viper.GetBool("debug"),
	})
}

// newRuntime wires the database, storage, events and the pipeline.
func newRuntime(ctx context.Context) (*runtime, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	db, err := openDatabase(config, log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{config: config, logger: log, db: db, store: store.New(db)}

	supported := config.AI.Gemini.SupportedModels
	if len(supported) == 0 {
		supported = gemini.SupportedModels
	}
	rt.resolver = credentials.NewResolver(rt.store, config.AI.Gemini.DefaultModel, supported, log)

	if config.Minio.Enabled {
		files, err := newFileStore(ctx, config.Minio)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.files = files
	}

	var notifier pipeline.Notifier = notify.Nop{}
	if config.Redis.Enabled {
		client, err := newRedis(ctx, config.Redis)
		if err != nil {
			log.Warn("redis is unavailable, pipeline events are disabled", zap.Error(err))
		} else {
			rt.redis = client
			notifier = notify.NewPublisher(client, config.Redis.ChannelPrefix, log)
		}
	}

	generator := gemini.NewGenerator(gemini.Options{
		DefaultModel: config.AI.Gemini.DefaultModel,
		Timeout:      config.AI.Gemini.Timeout,
		MaxRetries:   config.AI.Gemini.MaxRetries,
		Temperature:  config.AI.Gemini.Temperature,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}, log)

	completer := ai.NewLimited(generator, ai.LimitConfig{
		Concurrency:       config.Limits.Concurrency,
		RequestsPerMinute: config.Limits.RequestsPerMinute,
	})

	deps := pipeline.Deps{
		Store:       rt.store,
		Credentials: rt.resolver,
		Completer:   completer,
		Notifier:    notifier,
		Logger:      log,
	}
	if rt.files != nil {
		deps.Files = rt.files
	}

	rt.pipeline, err = pipeline.New(deps, pipeline.Config{
		ShortlistThreshold: config.Pipeline.ShortlistThreshold,
		MalformedRetries:   config.Pipeline.MalformedRetries,
		MaxResumeBytes:     config.Pipeline.ResumeMaxBytes,
		MaxLogLength:       config.AI.Gemini.MaxLogLength,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	log.Debug("runtime ready",
		zap.Bool("minio", rt.files != nil),
		zap.Bool("redis", rt.redis != nil),
		zap.Int("shortlist_threshold", rt.pipeline.Policy().Threshold),
	)

	return rt, nil
}

func newFileStore(ctx context.Context, cfg *MinioConfig) (*storage.Client, error) {
	secret, err := secrets.Load(secrets.Source{
		Name:  "minio secret access key",
		Value: cfg.SecretAccessKey,
		File:  cfg.SecretAccessKeyFile,
		Env:   "APPLYFLOW_MINIO_SECRET_ACCESS_KEY",
	})
	if err != nil {
		return nil, err
	}

	return storage.NewClient(ctx, storage.Config{
		Endpoint:         cfg.Endpoint,
		PublicEndpoint:   cfg.PublicEndpoint,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  secret,
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		UseSSL:           cfg.UseSSL,
		AutoCreateBucket: cfg.AutoCreateBucket,
	})
}

func newRedis(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	password, err := secrets.LoadOptional(secrets.Source{
		Name:  "redis password",
		Value: cfg.Password,
		File:  cfg.PasswordFile,
	})
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close releases connections. It is safe on a partially built runtime.
func (r *runtime) Close() {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = r.logger.Sync()
}

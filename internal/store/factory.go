package store

import (
	"context"
	"fmt"

	"studybuddy/internal/config"
	"studybuddy/internal/db"
	"studybuddy/internal/logger"
	"studybuddy/internal/r2"
)

// NewByEngine opens the KV engine selected by cfg.Store.Engine.
func NewByEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (KV, error) {
	switch cfg.Store.Engine {
	case config.EngineFile, "":
		log.Info("Using file store", "dir", cfg.Store.Dir)
		return NewFileKV(cfg.Store.Dir)
	case config.EngineRedis:
		log.Info("Using redis store", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return NewRedisKV(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	case config.EnginePostgres:
		log.Info("Using postgres store")
		return db.NewDB(ctx, cfg.Postgres.DatabaseURL)
	case config.EngineSQLite:
		log.Info("Using sqlite store", "path", cfg.SQLite.Path)
		return NewSQLiteKV(cfg.SQLite.Path)
	case config.EngineR2:
		log.Info("Using r2 store", "bucket", cfg.R2.BucketName, "prefix", cfg.R2.Prefix)
		return r2.NewClient(ctx, r2.Options{
			AccountID:       cfg.R2.AccountID,
			BucketName:      cfg.R2.BucketName,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Prefix:          cfg.R2.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported store engine %q", cfg.Store.Engine)
	}
}

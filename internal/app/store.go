package app

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/store"
	"github.com/redis/go-redis/v9"
)

// openStore builds the configured transcript gateway. The returned close
// function releases database and cache connections.
func openStore(cfg config.Config, logger *slog.Logger) (store.Gateway, func(), error) {
	var gw store.Gateway
	closers := []func() error{}

	switch cfg.Store.Backend {
	case config.BackendFile, "":
		path, err := storePath(cfg.Store.Path, "transcripts.json")
		if err != nil {
			return nil, nil, err
		}
		gw = store.NewFile(path)
	case config.BackendSQLite:
		path, err := storePath(cfg.Store.Path, "transcripts.db")
		if err != nil {
			return nil, nil, err
		}
		sqlStore, err := store.OpenSQL(config.BackendSQLite, path)
		if err != nil {
			return nil, nil, err
		}
		gw = sqlStore
		closers = append(closers, sqlStore.Close)
	case config.BackendPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return nil, nil, errors.New("store.dsn is required for the postgres backend")
		}
		sqlStore, err := store.OpenSQL(config.BackendPostgres, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		gw = sqlStore
		closers = append(closers, sqlStore.Close)
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if addr := strings.TrimSpace(cfg.Cache.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Cache.RedisDB})
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		gw = store.NewCached(gw, client, ttl, logger)
		closers = append(closers, client.Close)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && logger != nil {
				logger.Warn("close store failed", "error", err.Error())
			}
		}
	}
	return gw, closeAll, nil
}

func storePath(configured, name string) (string, error) {
	if path := strings.TrimSpace(configured); path != "" {
		return path, nil
	}
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

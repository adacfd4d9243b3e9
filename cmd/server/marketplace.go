package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/config"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
)

// newMarketplace builds the upstream client and the catalog in front of
// it. The returned close func releases the Redis connection, if any.
func newMarketplace(cfg *config.Config, logger zerolog.Logger) (*marketplace.Client, *marketplace.CachedCatalog, func(), error) {
	m := cfg.Marketplace
	client := marketplace.NewClient(marketplace.Config{
		BaseURL:           m.BaseURL,
		ClientID:          m.ClientID,
		APIKey:            m.APIKey,
		Timeout:           m.Timeout,
		RequestsPerSecond: m.RequestsPerSecond,
		Burst:             m.Burst,
		DraftRetry: marketplace.RetryPolicy{
			MaxAttempts: m.DraftRetries,
			BaseDelay:   m.DraftRetryDelay,
		},
	}, marketplace.WithLogger(logger))

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
	}
	catalog := marketplace.NewCachedCatalog(client, rdb, cfg.Redis.CacheTTL, logger)

	closeFn := func() {
		if rdb != nil {
			rdb.Close()
		}
	}
	return client, catalog, closeFn, nil
}

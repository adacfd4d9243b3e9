package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/model"
)

const (
	keyClusters = "slotwatch:cache:clusters:" // + sorted ids, or "all"
	keyProducts = "slotwatch:cache:products:" // + sorted skus

	DefaultCatalogTTL = 15 * time.Minute
)

// Catalog is the read-only reference data used to resolve configuration.
type Catalog interface {
	Clusters(ctx context.Context, ids ...int64) ([]model.Cluster, error)
	Products(ctx context.Context, skus []int64) ([]model.Product, error)
}

// CachedCatalog serves cluster and product lookups from Redis, falling
// back to the upstream. Timeslots are never cached. A Redis error disables
// the cache for the life of the process.
type CachedCatalog struct {
	next   Catalog
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.RWMutex
	disabled bool
}

// NewCachedCatalog wraps next. A nil client, or one that does not answer a
// ping, yields a pass-through catalog.
func NewCachedCatalog(next Catalog, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	c := &CachedCatalog{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
	}
	if client == nil {
		c.disabled = true
		return c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
		c.disabled = true
	}
	return c
}

func (c *CachedCatalog) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled
}

func (c *CachedCatalog) Clusters(ctx context.Context, ids ...int64) ([]model.Cluster, error) {
	key := keyClusters + idsKey(ids, "all")

	var clusters []model.Cluster
	if c.get(ctx, key, &clusters) {
		return clusters, nil
	}
	clusters, err := c.next.Clusters(ctx, ids...)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, clusters)
	return clusters, nil
}

func (c *CachedCatalog) Products(ctx context.Context, skus []int64) ([]model.Product, error) {
	key := keyProducts + idsKey(skus, "none")

	var products []model.Product
	if c.get(ctx, key, &products) {
		return products, nil
	}
	products, err := c.next.Products(ctx, skus)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, products)
	return products, nil
}

// Cluster resolves one cluster through the cache.
func (c *CachedCatalog) Cluster(ctx context.Context, id int64) (*model.Cluster, error) {
	return findCluster(ctx, c, id)
}

// FulfillmentWarehouses is Client.FulfillmentWarehouses served from the cache.
func (c *CachedCatalog) FulfillmentWarehouses(ctx context.Context, clusterID int64) ([]int64, error) {
	return fulfillmentWarehouses(ctx, c, clusterID)
}

// Invalidate drops every cached catalog entry.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	if !c.Available() {
		return nil
	}
	for _, prefix := range []string{keyClusters, keyProducts} {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				c.handleError(err, "delete")
				return err
			}
		}
		if err := iter.Err(); err != nil {
			c.handleError(err, "scan")
			return err
		}
	}
	return nil
}

func (c *CachedCatalog) get(ctx context.Context, key string, dest any) bool {
	if !c.Available() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.handleError(err, "get")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *CachedCatalog) set(ctx context.Context, key string, value any) {
	if !c.Available() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// handleError disables the cache on a Redis failure. A miss, or a caller
// giving up on its own context, says nothing about Redis.
func (c *CachedCatalog) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Debug().Err(err).Str("operation", operation).Msg("catalog cache call abandoned")
		return
	}
	c.logger.Warn().Err(err).Str("operation", operation).Msg("disabling catalog cache after redis error")
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
}

func idsKey(ids []int64, empty string) string {
	if len(ids) == 0 {
		return empty
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Package cache wraps the catalog repository with a redis read-through cache.
// Redis failures are logged and the call falls through to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	keyProductPrefix  = "product:"
	keyProductInfo    = "products:info"
	keyCatalogVersion = "products:version"

	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

var errStaleRead = errors.New("catalog changed during read")

func productKey(id uuid.UUID) string { return keyProductPrefix + id.String() }

type CachedCatalog struct {
	repo  repo.Catalog
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(inner repo.Catalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{repo: inner, redis: rdb, ttl: ttl}
}

var _ repo.Catalog = (*CachedCatalog)(nil)

func (c *CachedCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	key := productKey(id)
	l := logging.FromContext(ctx).With("cache_key", key)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, gorm.ErrRecordNotFound
		}
		var product models.Product
		decodeErr := json.Unmarshal(data, &product)
		if decodeErr == nil {
			return &product, nil
		}
		l.Warn("cache_decode_failed", "error", decodeErr)
	case errors.Is(err, redis.Nil):
	default:
		l.Warn("cache_get_failed", "error", err)
	}

	version, versionOK := c.version(ctx)
	product, err := c.repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if versionOK {
			c.setIfCurrent(ctx, key, []byte(notFoundMarker), notFoundTTL, version)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if versionOK {
		c.store(ctx, key, product, version)
	}
	return product, nil
}

func (c *CachedCatalog) ListProducts(ctx context.Context, spec filter.Spec) (int64, []models.Product, error) {
	return c.repo.ListProducts(ctx, spec)
}

func (c *CachedCatalog) CreateProduct(ctx context.Context, prod *models.Product) error {
	if err := c.repo.CreateProduct(ctx, prod); err != nil {
		return err
	}
	c.invalidate(ctx, prod.ID)
	return nil
}

func (c *CachedCatalog) UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error) {
	prod, err := c.repo.UpdateProduct(ctx, id, mutate)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return prod, nil
}

func (c *CachedCatalog) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := c.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedCatalog) ProductInfo(ctx context.Context) (repo.ProductInfo, error) {
	var info repo.ProductInfo
	if c.load(ctx, keyProductInfo, &info) {
		return info, nil
	}

	version, versionOK := c.version(ctx)
	info, err := c.repo.ProductInfo(ctx)
	if err != nil {
		return repo.ProductInfo{}, err
	}
	if versionOK {
		c.store(ctx, keyProductInfo, info, version)
	}
	return info, nil
}

func (c *CachedCatalog) load(ctx context.Context, key string, dst any) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("cache_get_failed", "cache_key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logging.FromContext(ctx).Warn("cache_decode_failed", "cache_key", key, "error", err)
		return false
	}
	return true
}

// version reads the catalog write counter; ok is false when redis is unavailable.
func (c *CachedCatalog) version(ctx context.Context) (int64, bool) {
	v, err := c.redis.Get(ctx, keyCatalogVersion).Int64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		logging.FromContext(ctx).Warn("cache_get_failed", "cache_key", keyCatalogVersion, "error", err)
		return 0, false
	}
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any, version int64) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(ctx).Warn("cache_encode_failed", "cache_key", key, "error", err)
		return
	}
	c.setIfCurrent(ctx, key, data, c.ttl, version)
}

// setIfCurrent writes key only while no catalog write happened since version was read.
func (c *CachedCatalog) setIfCurrent(ctx context.Context, key string, data []byte, ttl time.Duration, version int64) {
	err := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, keyCatalogVersion).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, keyCatalogVersion)

	l := logging.FromContext(ctx).With("cache_key", key)
	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		l.Debug("cache_store_skipped", "reason", "catalog changed during read")
	default:
		l.Warn("cache_set_failed", "error", err)
	}
}

func (c *CachedCatalog) invalidate(ctx context.Context, id uuid.UUID) {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, keyCatalogVersion)
		pipe.Del(ctx, productKey(id), keyProductInfo)
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Warn("cache_invalidate_failed", "product_id", id, "error", err)
	}
}

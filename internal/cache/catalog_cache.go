package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	catalogSnapshotKeyPrefix = "catalog:snapshot"
	catalogScanBatchSize     = 100
)

// CatalogCache stores product snapshots (product plus sales history) keyed by
// product id and history window.
type CatalogCache interface {
	Get(ctx context.Context, productID string, historyDays int) (*domain.CatalogSnapshot, bool, error)
	Set(ctx context.Context, historyDays int, snapshot *domain.CatalogSnapshot) error
	Invalidate(ctx context.Context, productID string) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCatalogCache struct{}

// NewCatalogCache returns a Redis-backed cache, or a no-op one when caching is
// disabled.
func NewCatalogCache(cfg config.CacheConfig) (CatalogCache, error) {
	if !cfg.Enabled {
		return &noopCatalogCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisCatalogCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopCatalogCache() CatalogCache {
	return &noopCatalogCache{}
}

func (c *redisCatalogCache) Get(ctx context.Context, productID string, historyDays int) (*domain.CatalogSnapshot, bool, error) {
	key := buildCatalogSnapshotKey(productID, historyDays)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.CatalogSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode catalog snapshot cache: %w", err)
	}

	return &snapshot, true, nil
}

func (c *redisCatalogCache) Set(ctx context.Context, historyDays int, snapshot *domain.CatalogSnapshot) error {
	if snapshot == nil {
		return nil
	}

	key := buildCatalogSnapshotKey(snapshot.Product.ID, historyDays)
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisCatalogCache) Invalidate(ctx context.Context, productID string) error {
	return deleteKeysWithPrefix(ctx, c.client, catalogProductPrefix(productID), catalogScanBatchSize)
}

func (c *redisCatalogCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, catalogSnapshotKeyPrefix+":", catalogScanBatchSize)
}

func (c *redisCatalogCache) Close() error {
	return c.client.Close()
}

func (n *noopCatalogCache) Get(context.Context, string, int) (*domain.CatalogSnapshot, bool, error) {
	return nil, false, nil
}

func (n *noopCatalogCache) Set(context.Context, int, *domain.CatalogSnapshot) error {
	return nil
}

func (n *noopCatalogCache) Invalidate(context.Context, string) error {
	return nil
}

func (n *noopCatalogCache) InvalidateAll(context.Context) error {
	return nil
}

func (n *noopCatalogCache) Close() error {
	return nil
}

func catalogProductPrefix(productID string) string {
	return fmt.Sprintf("%s:%s:", catalogSnapshotKeyPrefix, escapeKeyPart(productID))
}

func buildCatalogSnapshotKey(productID string, historyDays int) string {
	return fmt.Sprintf("%s%dd", catalogProductPrefix(productID), historyDays)
}

// escapeKeyPart keeps ids from injecting glob characters into SCAN patterns
// or colliding through the ':' separator.
func escapeKeyPart(s string) string {
	return strings.NewReplacer(
		":", "_",
		"*", "_",
		"?", "_",
		"[", "_",
		"]", "_",
		" ", "_",
	).Replace(strings.TrimSpace(s))
}

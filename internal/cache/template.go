// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// template.go caches template structures and published compiled blocks in
// Valkey. Entries are JSON; a miss or a Valkey error falls through to the
// database, so the cache never fails a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pagebuilder/internal/models"
)

const (
	keyPrefix       = "pb:"
	structurePrefix = keyPrefix + "structure:"
	publishedPrefix = keyPrefix + "published:"

	// DefaultTTL is how long a cached entry lives.
	DefaultTTL = 5 * time.Minute
)

// TemplateCache caches template data in Valkey.
type TemplateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTemplateCache creates a template cache backed by the given client.
func NewTemplateCache(client *redis.Client, ttl time.Duration) *TemplateCache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &TemplateCache{client: client, ttl: ttl}
}

// StructureKey returns the cache key of a template's section tree.
func StructureKey(templateID int64) string {
	return structurePrefix + strconv.FormatInt(templateID, 10)
}

// PublishedKey returns the cache key of a published template's blocks.
func PublishedKey(handle string) string {
	return publishedPrefix + handle
}

// Structure returns the cached tree of a template.
func (c *TemplateCache) Structure(ctx context.Context, templateID int64) (*models.TemplateStructure, bool) {
	var ts models.TemplateStructure
	if !c.get(ctx, StructureKey(templateID), &ts) {
		return nil, false
	}
	return &ts, true
}

// SetStructure caches the tree of a template.
func (c *TemplateCache) SetStructure(ctx context.Context, ts *models.TemplateStructure) {
	c.set(ctx, StructureKey(ts.ID), ts)
}

// Published returns the cached compiled blocks of a published template.
func (c *TemplateCache) Published(ctx context.Context, handle string) ([]models.CompiledBlock, bool) {
	var blocks []models.CompiledBlock
	if !c.get(ctx, PublishedKey(handle), &blocks) {
		return nil, false
	}
	return blocks, true
}

// SetPublished caches the compiled blocks of a published template.
func (c *TemplateCache) SetPublished(ctx context.Context, handle string, blocks []models.CompiledBlock) {
	if blocks == nil {
		blocks = []models.CompiledBlock{}
	}
	c.set(ctx, PublishedKey(handle), blocks)
}

// InvalidateTemplate drops everything cached for a template.
func (c *TemplateCache) InvalidateTemplate(ctx context.Context, templateID int64, handle string) {
	keys := []string{StructureKey(templateID)}
	if handle != "" {
		keys = append(keys, PublishedKey(handle))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("template cache invalidate error", "template_id", templateID, "error", err)
		return
	}
	slog.Debug("template cache invalidated", "template_id", templateID, "handle", handle)
}

// InvalidateAll removes all cached entries by scanning for the prefix.
func (c *TemplateCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("template cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("template cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("template cache cleared", "deleted", deleted)
	}
}

func (c *TemplateCache) get(ctx context.Context, key string, dst any) bool {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("template cache get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		slog.Warn("template cache decode error", "key", key, "error", err)
		return false
	}
	slog.Debug("template cache hit", "key", key)
	return true
}

func (c *TemplateCache) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("template cache encode error", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("template cache set error", "key", key, "error", err)
	}
}

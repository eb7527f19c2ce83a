// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache.go provides the in-process cache of blueprint versions consulted by
// the validator. Versions are immutable once created, so entries only leave
// the cache on eviction or when the version is deleted.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"pagebuilder/internal/models"
)

// DefaultVersionCacheSize bounds the number of cached blueprint versions.
const DefaultVersionCacheSize = 1024

// versionLoader is the storage lookup behind the cache. It returns
// (nil, nil) when the version does not exist.
type versionLoader func(ctx context.Context, id int64) (*models.BlueprintVersion, error)

// versionCache is a concurrency-safe LRU of blueprint versions. Concurrent
// misses for the same id share one storage lookup.
type versionCache struct {
	entries *lru.Cache[int64, *models.BlueprintVersion]
	group   singleflight.Group
	load    versionLoader
}

func newVersionCache(size int, load versionLoader) (*versionCache, error) {
	if size <= 0 {
		size = DefaultVersionCacheSize
	}
	entries, err := lru.New[int64, *models.BlueprintVersion](size)
	if err != nil {
		return nil, fmt.Errorf("create version cache: %w", err)
	}
	return &versionCache{entries: entries, load: load}, nil
}

// BlueprintVersion implements validate.VersionSource. Missing versions are
// not cached, so a version created later is picked up on the next call.
func (c *versionCache) BlueprintVersion(ctx context.Context, id int64) (*models.BlueprintVersion, error) {
	if v, ok := c.entries.Get(id); ok {
		return v, nil
	}

	// The load is shared with other callers, so one caller going away must
	// not fail it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	res, err, shared := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		v, err := c.load(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			c.entries.Add(id, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load blueprint version %d: %w", id, err)
	}
	if shared {
		slog.Debug("blueprint version load shared", "version_id", id)
	}
	v, _ := res.(*models.BlueprintVersion)
	return v, nil
}

// remove drops a version, e.g. after it was deleted.
func (c *versionCache) remove(id int64) {
	c.entries.Remove(id)
}

func (c *versionCache) len() int {
	return c.entries.Len()
}

package controller

import (
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/cache"
	"credlyse_backend/pkg/logger"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NamedCache is the admin view of one cache, whatever it stores.
type NamedCache interface {
	Stats() cache.Stats
	Delete(key string) bool
	Clear()
}

type CacheController struct {
	Caches map[string]NamedCache
}

func NewCacheController(caches map[string]NamedCache) *CacheController {
	return &CacheController{Caches: caches}
}

// @Summary Cache statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/cache/stats [get]
func (c *CacheController) Stats(ctx *gin.Context) {
	names := make([]string, 0, len(c.Caches))
	for name := range c.Caches {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(gin.H, len(names))
	for _, name := range names {
		out[name] = c.Caches[name].Stats()
	}
	util.Success(ctx, out)
}

// @Summary Drop one cache entry
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param name path string true "cache name"
// @Param key path string true "entry key"
// @Success 200 {object} util.Response
// @Router /api/admin/cache/{name}/{key} [delete]
func (c *CacheController) Delete(ctx *gin.Context) {
	name := ctx.Param("name")
	named, ok := c.Caches[name]
	if !ok {
		util.HandleError(ctx, util.ErrUnknownCache)
		return
	}

	key := ctx.Param("key")
	deleted := named.Delete(key)
	logger.Log.Info("Cache entry deleted by admin",
		zap.String("cache", name),
		zap.String("key", key),
		zap.Bool("existed", deleted))
	util.Success(ctx, gin.H{"cache": name, "key": key, "deleted": deleted})
}

// @Summary Empty a cache
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param name path string true "cache name"
// @Success 200 {object} util.Response
// @Router /api/admin/cache/{name} [delete]
func (c *CacheController) Clear(ctx *gin.Context) {
	name := ctx.Param("name")
	named, ok := c.Caches[name]
	if !ok {
		util.HandleError(ctx, util.ErrUnknownCache)
		return
	}

	named.Clear()
	logger.Log.Info("Cache cleared by admin", zap.String("cache", name))
	util.Success(ctx, gin.H{"cache": name, "cleared": true})
}

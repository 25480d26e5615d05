package service

import (
	"context"
	"encoding/json"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const (
	ProductsListKey   = "products:all"
	CategoriesListKey = "categories:all"
)

// CacheCoordinator владеет ключами кеша "список всех X".
// Ошибки кеша никогда не пробрасываются наружу: запись в БД уже состоялась.
type CacheCoordinator struct {
	cache util.ListCache
	ttls  map[entity.EntityKind]time.Duration // TTL ключа по виду сущности
}

// NewCacheCoordinator создает координатор с TTL для списков товаров и категорий
func NewCacheCoordinator(cache util.ListCache, productsTTL, categoriesTTL time.Duration) *CacheCoordinator {
	return &CacheCoordinator{
		cache: cache,
		ttls: map[entity.EntityKind]time.Duration{
			entity.KindProduct:  productsTTL,
			entity.KindCategory: categoriesTTL,
		},
	}
}

// listKey возвращает ключ списочного кеша; у отзывов его нет
func listKey(kind entity.EntityKind) (string, bool) {
	switch kind {
	case entity.KindProduct:
		return ProductsListKey, true
	case entity.KindCategory:
		return CategoriesListKey, true
	}
	return "", false
}

// InvalidateListCache сбрасывает закешированный список сущностей kind.
// Для отзывов списочного кеша нет, вызов ничего не делает.
func (c *CacheCoordinator) InvalidateListCache(ctx context.Context, kind entity.EntityKind) {
	key, ok := listKey(kind)
	if !ok {
		return
	}

	err := c.cache.Delete(ctx, key)
	metrics.RecordListCacheInvalidation(string(kind), err)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate list cache")
	}
}

// cachedList отдаёт список из кеша, при промахе загружает через load и кладёт в кеш
func cachedList[T any](ctx context.Context, c *CacheCoordinator, kind entity.EntityKind, load func(context.Context) ([]T, error)) ([]T, error) {
	key, ok := listKey(kind)
	if !ok {
		return load(ctx)
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("list cache read failed, falling back to database")
	} else if data != nil {
		var items []T
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		logger.Warn().Str("key", key).Msg("corrupted list cache entry")
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}

	// Не удалось закешировать - всё равно отдаём загруженное
	payload, err := json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := c.cache.Set(ctx, key, payload, c.ttls[kind]); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to cache list")
	}

	return items, nil
}

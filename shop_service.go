package localping

import (
	"context"
	"errors"
	"time"
)

// ShopService serves shop reads through the cache client and keeps the
// cache coherent on writes. The TTL-encoded reads live under
// CacheShopKeyPrefix, and the logical-expiration entries that WarmShopCache
// seeds live under CacheShopHotKeyPrefix; the encodings never share a key.
type ShopService struct {
	repo  *ShopRepository
	cache *CacheClient
}

func NewShopService(repo *ShopRepository, cache *CacheClient) *ShopService {
	return &ShopService{repo: repo, cache: cache}
}

// QueryShopByID reads a shop with penetration protection.
func (s *ShopService) QueryShopByID(ctx context.Context, id int64) (*Shop, error) {
	return QueryWithPassThrough(ctx, s.cache, CacheShopKeyPrefix, id, s.loadShop, CacheShopTTL)
}

// QueryShopByIDWithMutex reads a shop rebuilding misses under a per-key
// mutex, so an expiring hot shop costs one load instead of a stampede.
func (s *ShopService) QueryShopByIDWithMutex(ctx context.Context, id int64) (*Shop, error) {
	return QueryWithMutex(ctx, s.cache, CacheShopKeyPrefix, id, s.loadShop, CacheShopTTL)
}

// QueryShopByIDWithLogicalExpire reads a pre-warmed shop, serving stale data
// while a background rebuild refreshes it. Call WarmShopCache first; cold
// shops return ErrNotFound.
func (s *ShopService) QueryShopByIDWithLogicalExpire(ctx context.Context, id int64) (*Shop, error) {
	return QueryWithLogicalExpire(ctx, s.cache, CacheShopHotKeyPrefix, id, s.loadShop, CacheShopTTL)
}

// WarmShopCache seeds the logical-expiration entry for a shop.
func (s *ShopService) WarmShopCache(ctx context.Context, id int64, ttl time.Duration) error {
	shop, err := s.repo.FindById(ctx, id)
	if err != nil {
		return err
	}
	return s.cache.SetWithLogicalExpire(ctx, cacheShopHotKey(id), &shop, ttl)
}

// UpdateShop writes the row first, then drops both cache entries. The row
// store is the source of truth; the next reader rebuilds from it, bounding
// staleness to a single read-after-write window. Hot shops need rewarming
// after an update.
func (s *ShopService) UpdateShop(ctx context.Context, shop *Shop) error {
	if shop.ID == 0 {
		return ErrNotFound
	}
	if err := s.repo.Update(ctx, *shop); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheShopKey(shop.ID)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheShopHotKey(shop.ID))
}

func (s *ShopService) ListShops(ctx context.Context, page PageRequest) (PageResponse[Shop], error) {
	return s.repo.FindAllPaginated(ctx, page)
}

func (s *ShopService) loadShop(ctx context.Context, id int64) (*Shop, error) {
	shop, err := s.repo.FindById(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

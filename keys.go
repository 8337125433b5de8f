package localping

import (
	"fmt"
	"time"
)

// Cache keys follow the {prefix}:{module}:{id} convention so unrelated
// entries and locks can never collide on a shared Redis instance.
const (
	CacheShopKeyPrefix = "cache:shop:"
	// CacheShopHotKeyPrefix holds the logical-expiration entries. The two
	// shop read paths use distinct keys so their encodings never meet.
	CacheShopHotKeyPrefix = "cache:shop:hot:"
	CacheVoucherKeyPrefix = "cache:voucher:"
	LoginTokenKeyPrefix   = "login:token:"

	CacheShopTTL  = 30 * time.Minute
	CacheNullTTL  = 2 * time.Minute
	LoginTokenTTL = 30 * time.Minute
)

const (
	lockKeyPrefix      = "lock:"
	idCounterKeyPrefix = "icr:"
)

// Lock namespaces. Every lock name is scoped by the namespace of the
// component that acquires it.
const (
	CacheLockNamespace = "cache"
	OrderLockNamespace = "order"
)

func cacheShopKey(id int64) string {
	return fmt.Sprintf("%s%d", CacheShopKeyPrefix, id)
}

func cacheShopHotKey(id int64) string {
	return fmt.Sprintf("%s%d", CacheShopHotKeyPrefix, id)
}

func lockKey(namespace, name string) string {
	return lockKeyPrefix + namespace + ":" + name
}

func loginTokenKey(tokenID string) string {
	return LoginTokenKeyPrefix + tokenID
}

func idCounterKey(prefix, day string) string {
	return fmt.Sprintf("%s%s:%s", idCounterKeyPrefix, prefix, day)
}

package localping

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// SeckillService runs the flash-sale purchase flow: window check, soft
// stock check, a per-user distributed lock, then an existence check plus
// conditional stock decrement and order insert inside one transaction.
//
// The lock serializes attempts per user, not per voucher: distinct users
// never contend on it, only the conditional decrement arbitrates stock
// between them. A busy lock means the same user already has an attempt in
// flight somewhere in the cluster, which is reported as a duplicate order
// rather than retried.
type SeckillService struct {
	vouchers *VoucherRepository
	orders   *OrderRepository
	cache    *RedisCache
	idWorker *IDWorker

	lockLease time.Duration
	now       func() time.Time
}

func NewSeckillService(vouchers *VoucherRepository, orders *OrderRepository, cache *RedisCache, idWorker *IDWorker) *SeckillService {
	return &SeckillService{
		vouchers:  vouchers,
		orders:    orders,
		cache:     cache,
		idWorker:  idWorker,
		lockLease: 30 * time.Second,
		now:       time.Now,
	}
}

// SeckillVoucher attempts a one-order-per-user purchase and returns the new
// order id. Domain outcomes (not started, ended, sold out, duplicate,
// already purchased) are ApiError values; anything else is an infrastructure
// failure.
func (s *SeckillService) SeckillVoucher(ctx context.Context, userID, voucherID int64) (int64, error) {
	voucher, err := s.vouchers.FindById(ctx, voucherID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if now.Before(voucher.BeginTime) {
		return 0, ErrSeckillNotStart
	}
	if now.After(voucher.EndTime) {
		return 0, ErrSeckillEnded
	}
	// soft check; the decrement below is the authoritative one
	if voucher.Stock < 1 {
		return 0, ErrStockEmpty
	}

	lock := NewSimpleRedisLock(s.cache, OrderLockNamespace, strconv.FormatInt(userID, 10))
	acquired, err := lock.TryLock(ctx, s.lockLease)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, ErrDuplicateOrder
	}
	defer func() {
		// detached from ctx: a cancelled request must still release the
		// lock instead of leaving it to lease expiry
		if unlockErr := lock.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Warn().Err(unlockErr).Int64("user_id", userID).Msg("order unlock failed")
		}
	}()

	return s.createOrder(ctx, userID, voucherID)
}

// createOrder runs steps 3-5 as one transaction: either the stock decrement
// and the order insert both land, or neither does. Callers must hold the
// per-user lock.
func (s *SeckillService) createOrder(ctx context.Context, userID, voucherID int64) (int64, error) {
	tx, err := s.orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // no-op once committed

	exists, err := s.orders.ExistsByUserAndVoucher(ctx, tx, userID, voucherID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrAlreadyPurchased
	}

	decremented, err := s.vouchers.DecrementStock(ctx, tx, voucherID)
	if err != nil {
		return 0, err
	}
	if !decremented {
		return 0, ErrStockEmpty
	}

	orderID, err := s.idWorker.NextID(ctx, "order")
	if err != nil {
		return 0, err
	}

	order := VoucherOrder{
		ID:        orderID,
		UserID:    userID,
		VoucherID: voucherID,
		CreatedAt: s.now(),
	}
	if err := s.orders.WithTx(tx).Save(ctx, order); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

package localping

import (
	"context"
	"database/sql"
)

type ShopRepository struct {
	*SQLRepository[Shop]
}

func NewShopRepository(db *sql.DB) *ShopRepository {
	return &ShopRepository{SQLRepository: NewSQLRepository[Shop](db)}
}

type UserRepository struct {
	*SQLRepository[User]
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{SQLRepository: NewSQLRepository[User](db)}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return r.FindOneBy(ctx, "phone", phone)
}

type VoucherRepository struct {
	*SQLRepository[SeckillVoucher]
}

func NewVoucherRepository(db *sql.DB) *VoucherRepository {
	return &VoucherRepository{SQLRepository: NewSQLRepository[SeckillVoucher](db)}
}

// DecrementStock takes one unit of stock if any remains, as a single
// conditional statement. The stock > 0 predicate is the sole overselling
// guard; callers must treat zero rows affected as sold out, never retry with
// a read-then-write.
func (r *VoucherRepository) DecrementStock(ctx context.Context, tx *sql.Tx, voucherID int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE seckill_vouchers SET stock = stock - 1 WHERE id = $1 AND stock > 0",
		voucherID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type OrderRepository struct {
	*SQLRepository[VoucherOrder]
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{SQLRepository: NewSQLRepository[VoucherOrder](db)}
}

// ExistsByUserAndVoucher reports whether the user already ordered this
// voucher. Only meaningful inside the per-user lock; the check is advisory,
// not a storage constraint.
func (r *OrderRepository) ExistsByUserAndVoucher(ctx context.Context, tx *sql.Tx, userID, voucherID int64) (bool, error) {
	return r.WithTx(tx).ExistsByFilters(ctx, map[string]interface{}{
		"user_id":    userID,
		"voucher_id": voucherID,
	})
}

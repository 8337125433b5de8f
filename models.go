package localping

import "time"

// Shop is a local-services listing. Cached under CacheShopKeyPrefix in
// either encoding; the row store stays authoritative.
type Shop struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TypeID    int64     `json:"typeId" db:"type_id"`
	Area      string    `json:"area" db:"area"`
	Address   string    `json:"address" db:"address"`
	AvgPrice  int64     `json:"avgPrice" db:"avg_price"`
	Sold      int       `json:"sold" db:"sold"`
	Comments  int       `json:"comments" db:"comments"`
	Score     int       `json:"score" db:"score"`
	OpenHours string    `json:"openHours" db:"open_hours"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (Shop) GetTableName() string {
	return "shops"
}

// SeckillVoucher is a time-boxed, stock-limited voucher. Stock is mutated
// only by the conditional decrement in VoucherRepository; it never goes
// negative.
type SeckillVoucher struct {
	ID        int64     `json:"id" db:"id"`
	ShopID    int64     `json:"shopId" db:"shop_id"`
	Title     string    `json:"title" db:"title"`
	Stock     int       `json:"stock" db:"stock"`
	BeginTime time.Time `json:"beginTime" db:"begin_time"`
	EndTime   time.Time `json:"endTime" db:"end_time"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (SeckillVoucher) GetTableName() string {
	return "seckill_vouchers"
}

// VoucherOrder is created exactly once per successful purchase and never
// mutated by this subsystem. At most one row exists per (user, voucher),
// enforced by the per-user lock plus existence check in SeckillService.
type VoucherOrder struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	VoucherID int64     `json:"voucherId" db:"voucher_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (VoucherOrder) GetTableName() string {
	return "voucher_orders"
}

type User struct {
	ID        int64     `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	Password  string    `json:"-" db:"password"`
	NickName  string    `json:"nickName" db:"nick_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (User) GetTableName() string {
	return "users"
}

// UserDTO is the slice of User kept in the redis login session; never the
// password hash.
type UserDTO struct {
	ID       int64  `json:"id"`
	NickName string `json:"nickName"`
}

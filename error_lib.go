package localping

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ApiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e ApiError) New(messages ...string) ApiError {
	args := make([]any, len(messages))
	for i, msg := range messages {
		args[i] = msg
	}

	message := fmt.Sprintf(e.Message, args...)
	return ApiError{
		ErrorCode: e.ErrorCode,
		Message:   message,
	}
}

func (e ApiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Domain outcomes. These are expected results, not failures; handlers map
// them to 4xx responses via SendError.
var (
	ErrNotFound         = ApiError{ErrorCode: "NOT_FOUND", Message: "resource not found"}
	ErrUnauthorized     = ApiError{ErrorCode: "UNAUTHORIZED", Message: "login required"}
	ErrSeckillNotStart  = ApiError{ErrorCode: "SECKILL_NOT_STARTED", Message: "seckill has not started yet"}
	ErrSeckillEnded     = ApiError{ErrorCode: "SECKILL_ENDED", Message: "seckill has already ended"}
	ErrStockEmpty       = ApiError{ErrorCode: "STOCK_EMPTY", Message: "stock is not enough"}
	ErrDuplicateOrder   = ApiError{ErrorCode: "DUPLICATE_ORDER", Message: "another order attempt by this user is in flight"}
	ErrAlreadyPurchased = ApiError{ErrorCode: "ALREADY_PURCHASED", Message: "user has already purchased this voucher"}
	ErrLockBusy         = ApiError{ErrorCode: "LOCK_BUSY", Message: "resource is busy, try again later"}
	ErrBadCredentials   = ApiError{ErrorCode: "BAD_CREDENTIALS", Message: "phone or password is incorrect"}
)

// Infrastructure errors.
var (
	// ErrStoreUnavailable wraps any backing cache or row store failure.
	// It is surfaced to the caller and never retried at this layer.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrKeyAbsent reports a plain cache miss on the backing store.
	ErrKeyAbsent = errors.New("key absent")

	// ErrPoolSaturated reports a rejected rebuild task. The stale cached
	// value keeps serving reads until another reader retries.
	ErrPoolSaturated = errors.New("rebuild pool saturated")

	// ErrPoolClosed reports a submit after Stop.
	ErrPoolClosed = errors.New("rebuild pool closed")
)

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func SendError(c *gin.Context, err error) {
	var customErr ApiError
	if errors.As(err, &customErr) {
		status := http.StatusBadRequest
		switch customErr.ErrorCode {
		case ErrNotFound.ErrorCode:
			status = http.StatusNotFound
		case ErrUnauthorized.ErrorCode:
			status = http.StatusUnauthorized
		case ErrLockBusy.ErrorCode, ErrDuplicateOrder.ErrorCode:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error_code": customErr.ErrorCode,
			"message":    customErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error_code": "Internal Server Error",
		"message":    "An unknown error occurred",
	})
}

package localping

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SeckillResponse struct {
	OrderID int64 `json:"order_id"`
}

type VoucherOrderController struct {
	service *SeckillService
}

func NewVoucherOrderController(service *SeckillService) *VoucherOrderController {
	return &VoucherOrderController{service: service}
}

func (vc *VoucherOrderController) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/vouchers/:id/seckill", Handler: vc.Seckill, Middleware: []gin.HandlerFunc{LoginRequiredMiddleware()}},
	}
}

// Seckill rejects unauthenticated callers before any voucher state is read.
func (vc *VoucherOrderController) Seckill(c *gin.Context) {
	userID, err := CurrentUserID(c)
	if err != nil {
		SendError(c, err)
		return
	}
	voucherID, err := PathID(c, "id")
	if err != nil {
		SendError(c, err)
		return
	}
	orderID, err := vc.service.SeckillVoucher(c.Request.Context(), userID, voucherID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, SeckillResponse{OrderID: orderID})
}

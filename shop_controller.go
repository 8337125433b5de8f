package localping

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ShopController struct {
	service *ShopService
}

func NewShopController(service *ShopService) *ShopController {
	return &ShopController{service: service}
}

func (sc *ShopController) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/shops", Handler: sc.ListShops},
		{Method: http.MethodGet, Path: "/shops/:id", Handler: sc.GetShop},
		{Method: http.MethodGet, Path: "/shops/:id/hot", Handler: sc.GetHotShop},
		{Method: http.MethodPut, Path: "/shops", Handler: sc.UpdateShop, Middleware: []gin.HandlerFunc{LoginRequiredMiddleware()}},
	}
}

func (sc *ShopController) ListShops(c *gin.Context) {
	page := BuildPageRequest(c)
	if c.IsAborted() {
		return
	}
	shops, err := sc.service.ListShops(c.Request.Context(), page)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

func (sc *ShopController) GetShop(c *gin.Context) {
	id, err := PathID(c, "id")
	if err != nil {
		SendError(c, err)
		return
	}
	shop, err := sc.service.QueryShopByIDWithMutex(c.Request.Context(), id)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// GetHotShop serves pre-warmed shops on the logical-expiration path. Shops
// that were never warmed come back 404 even when the row exists.
func (sc *ShopController) GetHotShop(c *gin.Context) {
	id, err := PathID(c, "id")
	if err != nil {
		SendError(c, err)
		return
	}
	shop, err := sc.service.QueryShopByIDWithLogicalExpire(c.Request.Context(), id)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (sc *ShopController) UpdateShop(c *gin.Context) {
	shop, err := BuildRequest[Shop](c)
	if err != nil {
		return
	}
	if err := sc.service.UpdateShop(c.Request.Context(), &shop); err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

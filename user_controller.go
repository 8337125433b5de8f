package localping

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	NickName string `json:"nick_name"`
}

type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type UserController struct {
	service *UserService
}

func NewUserController(service *UserService) *UserController {
	return &UserController{service: service}
}

func (uc *UserController) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/users/register", Handler: uc.Register},
		{Method: http.MethodPost, Path: "/users/login", Handler: uc.Login},
		{Method: http.MethodPost, Path: "/users/logout", Handler: uc.Logout, Middleware: []gin.HandlerFunc{LoginRequiredMiddleware()}},
		{Method: http.MethodGet, Path: "/users/me", Handler: uc.Me, Middleware: []gin.HandlerFunc{LoginRequiredMiddleware()}},
	}
}

func (uc *UserController) Register(c *gin.Context) {
	request, err := BuildRequest[RegisterRequest](c)
	if err != nil {
		return
	}
	user, err := uc.service.Register(c.Request.Context(), request.Phone, request.Password, request.NickName)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, UserDTO{ID: user.ID, NickName: user.NickName})
}

func (uc *UserController) Login(c *gin.Context) {
	request, err := BuildRequest[LoginRequest](c)
	if err != nil {
		return
	}
	token, err := uc.service.Login(c.Request.Context(), request.Phone, request.Password)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (uc *UserController) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		SendError(c, ErrUnauthorized)
		return
	}
	if err := uc.service.Logout(c.Request.Context(), token); err != nil {
		SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (uc *UserController) Me(c *gin.Context) {
	auth, err := GetAuthContext(c)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserDTO{ID: auth.UserID, NickName: auth.NickName})
}

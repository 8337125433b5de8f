package localping

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingController struct{}

func (pingController) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/ping", Handler: func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		}},
	}
}

type middlewareController struct{}

func (middlewareController) Routes() []Route {
	return []Route{
		{
			Method: http.MethodGet,
			Path:   "/guarded",
			Handler: func(c *gin.Context) {
				c.String(http.StatusOK, c.GetString("middleware"))
			},
			Middleware: []gin.HandlerFunc{func(c *gin.Context) {
				c.Set("middleware", "called")
				c.Next()
			}},
		},
	}
}

func TestRegisterControllers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := &Server{engine: gin.New()}

	server.RegisterControllers(pingController{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRegisterControllers_RouteMiddlewareRunsFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := &Server{engine: gin.New()}

	server.RegisterControllers(middlewareController{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "called", w.Body.String())
}

func TestRegisterGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := &Server{engine: gin.New()}

	var groupMiddlewareHit bool
	server.RegisterGroups(RouterGroup{
		Path: "/api/v1",
		Middleware: []gin.HandlerFunc{func(c *gin.Context) {
			groupMiddlewareHit = true
			c.Next()
		}},
		Controllers: []Controller{pingController{}},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, groupMiddlewareHit)

	// routes are not registered outside the group
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	server.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

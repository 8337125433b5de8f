package localping

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func BuildRequest[T interface{}](c *gin.Context) (T, error) {
	var request T
	if c.ShouldBindJSON(&request) != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return request, errors.New("bad request")
	}
	return request, nil
}

func BuildAuthRequestContext[T interface{}](c *gin.Context) (T, AuthContext, error) {
	request, err := BuildRequest[T](c)
	if err != nil {
		return request, AuthContext{}, err
	}
	authContext, err := GetAuthContext(c)
	if err != nil {
		return request, AuthContext{}, err
	}
	return request, authContext, nil
}

func BuildPageRequest(c *gin.Context) PageRequest {
	pageString := c.DefaultQuery("page", "1")
	sizeString := c.DefaultQuery("size", "10")
	sortString := c.DefaultQuery("sort", "id,asc")
	page, err := strconv.ParseInt(pageString, 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
	}
	size, err := strconv.ParseInt(sizeString, 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
	}
	// a non-positive page would turn into a negative OFFSET downstream
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	sortSplit := strings.Split(sortString, ",")
	var sort SortField
	if len(sortSplit) > 1 {
		direction := 1
		if sortSplit[1] == "desc" {
			direction = -1
		}
		sort = SortField{
			Field:     sortSplit[0],
			Direction: direction,
		}
	} else {
		sort = SortField{
			Field:     sortSplit[0],
			Direction: 1,
		}
	}

	return PageRequest{Page: int(page), Size: int(size), Sort: sort}
}

// PathID parses an int64 id path parameter.
func PathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return id, nil
}

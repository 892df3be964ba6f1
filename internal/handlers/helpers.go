package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// tolerant of the types middleware may put in the context (int / int64 /
// float64 / string)
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getIdentity(c *gin.Context) (tenantID, userID, roleID int) {
	if id, ok := getIntFromCtx(c, "tenant_id"); ok {
		tenantID = id
	}
	if id, ok := getIntFromCtx(c, "user_id"); ok {
		userID = id
	}
	if id, ok := getIntFromCtx(c, "role_id"); ok {
		roleID = id
	}
	return
}

func pageParams(c *gin.Context) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "100"))
	if err != nil || size < 1 {
		size = 100
	}
	return size, (page - 1) * size
}

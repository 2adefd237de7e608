package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParsePage 解析 page/limit 查询参数
func ParsePage(c *gin.Context) (int, int) {
	page := DefaultPage
	limit := DefaultLimit
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

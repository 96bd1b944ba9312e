package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/interfaces/http/dto"
)

// dtoListRequest binds pagination query parameters, falling back to defaults
// when they are absent or malformed
func dtoListRequest(c *gin.Context) dto.ListRequest {
	list := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&list); err != nil {
		return dto.DefaultListRequest()
	}
	if list.Page < 1 {
		list.Page = 1
	}
	if list.PageSize < 1 || list.PageSize > 100 {
		list.PageSize = 20
	}
	return list
}

// parsePeriodParams reads year and month path parameters
func parsePeriodParams(c *gin.Context) (year, month int, ok bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2200 {
		return 0, 0, false
	}
	month, err = strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

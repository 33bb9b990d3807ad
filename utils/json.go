package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes a success JSON response.
func Success(c *gin.Context, data interface{}, toast interface{}) {
	body := gin.H{
		"code": 0,
		"msg":  "ok",
		"data": data,
	}
	if toast != nil {
		body["toast"] = toast
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes an error JSON response.
func Fail(c *gin.Context, status int, msg string, toast interface{}) {
	body := gin.H{
		"code": -1,
		"msg":  msg,
	}
	if toast != nil {
		body["toast"] = toast
	}
	c.AbortWithStatusJSON(status, body)
}

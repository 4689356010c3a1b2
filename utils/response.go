package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	JSONErrorWithData(c, status, err, message, nil)
}

// JSONErrorWithData sends an error response that also carries data the caller can act on,
// such as the minimum acceptable bid or a retry hint
func JSONErrorWithData(c *gin.Context, status int, err error, message string, data gin.H) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

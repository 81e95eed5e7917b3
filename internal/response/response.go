package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Success    bool       `json:"success"`
	StatusCode int        `json:"statusCode"`
	Data       any        `json:"data,omitempty"`
	Error      *ErrorBody `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{
		Success:    true,
		StatusCode: status,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	})
}

func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, failure(status, code, message))
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, failure(status, code, message))
}

func failure(status int, code, message string) Envelope {
	return Envelope{
		StatusCode: status,
		Error:      &ErrorBody{Code: code, Message: message},
		Timestamp:  time.Now().UTC(),
	}
}

package response

import (
	"github.com/gin-gonic/gin"

	"github.com/klhlearn/peerlearn-backend/internal/platform/apierr"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Code: code, Message: msg}})
}

// RespondServiceError maps a service-layer error onto the envelope,
// using the embedded status/code when the error carries one.
func RespondServiceError(c *gin.Context, err error) {
	status, code := apierr.StatusAndCode(err)
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, status int, body interface{}) {
	c.JSON(status, body)
}

package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registration-service/pkg/response"
)

// Recovery turns a panic into a 500 {code, message} body and logs it with logrus.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.Request.URL.Path,
				"panic":      rec,
			}).Error("panic recovered")
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, response.MsgInternal)
	})
}

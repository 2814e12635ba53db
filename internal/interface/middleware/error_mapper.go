package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/pkg/apperror"
	"github.com/oksasatya/go-user-directory/pkg/response"
)

// StatusFor maps an error kind to its HTTP status.
// Internal stays 400 to keep the public contract of the users API.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.Validation:
		return http.StatusBadRequest
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.MalformedInput:
		return http.StatusBadRequest
	case apperror.Internal:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// ErrorMapper converts the last error attached with c.Error into an ErrorBody
// once the handler chain has finished. Handlers never write error bodies themselves.
func ErrorMapper(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, logger, c.Errors.Last().Err)
	}
}

// Recovery turns a panic into an Internal error body.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("%v", recovered)
		if logger != nil {
			logger.WithField("request_id", c.GetString("request_id")).WithError(err).Error("panic recovered")
		}
		writeError(c, nil, err)
	})
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	ae := apperror.As(err)
	status := StatusFor(ae.Kind)
	if logger != nil {
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"kind":       ae.Kind.String(),
			"status":     status,
			"path":       c.Request.URL.Path,
		})
		if ae.Kind == apperror.Internal {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Debug(ae.Message)
		}
	}
	response.AbortWithError(c, status, ae.Error(), ae.Fields)
}

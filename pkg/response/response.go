package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TimestampLayout is the format of ErrorBody.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000"

// ErrorBody is the JSON body written for every failed request.
type ErrorBody struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func Error(ctx *gin.Context, status int, message string, fields map[string]string) ErrorBody {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return ErrorBody{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().Format(TimestampLayout),
		RequestID: ctx.GetString("request_id"),
		Errors:    fields,
	}
}

// AbortWithError writes an ErrorBody and stops the handler chain.
func AbortWithError(ctx *gin.Context, status int, message string, fields map[string]string) {
	body := Error(ctx, status, message, fields)
	ctx.AbortWithStatusJSON(body.Status, body)
}

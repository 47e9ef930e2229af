package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last handler error as
// {"error":{"message","code","fields"},"request_id"}.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		rid := GetRequestID(c)

		level := slog.LevelWarn
		if status >= 500 {
			level = slog.LevelError
		}
		l.LogAttrs(c.Request.Context(), level, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.String("code", apperr.Code(err)),
			slog.Any("err", err),
		)

		body := gin.H{
			"message": apperr.PublicMessage(err),
			"code":    apperr.Code(err),
		}
		if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":      body,
			"request_id": rid,
		})
	}
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

const CtxKeyUserID = "user_id"

// TokenParser turns a bearer token into a user id.
type TokenParser interface {
	Parse(token string) (string, error)
}

// Auth reads an optional "Authorization: Bearer" header. Requests without one
// pass through anonymous; a header that does not verify is rejected.
func Auth(tp TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}

		parts := strings.Fields(h)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			Fail(c, apperr.UnauthorizedErr("Invalid authorization header"))
			return
		}
		uid, err := tp.Parse(parts[1])
		if err != nil {
			Fail(c, &apperr.AppError{Kind: apperr.Unauthorized, PublicMsg: "Token is not valid", Err: err})
			return
		}

		c.Set(CtxKeyUserID, uid)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxKeyUserID)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

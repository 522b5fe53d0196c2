package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readlater/internal/pkg/errcode"
	"github.com/xxxsen/readlater/internal/pkg/response"
)

const HeaderInboundToken = "X-Inbound-Token"

// InboundToken guards machine callbacks such as the email relay with a
// shared token. An empty token rejects every call.
func InboundToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderInboundToken))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			response.Error(c, errcode.ErrUnauthorized, "invalid inbound token")
			c.Abort()
			return
		}
		c.Next()
	}
}

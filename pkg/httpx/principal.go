package httpx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/yote/pkg/ctxmeta"
)

// HeaderUserID — заголовок, в котором внешний слой сессий передаёт id вошедшего пользователя.
const HeaderUserID = "X-User-ID"

// PrincipalMiddleware — переносит id пользователя из заголовка в контекст запроса.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
			c.Request = c.Request.WithContext(ctxmeta.WithPrincipal(c.Request.Context(), id))
		}
		c.Next()
	}
}

// RequireLogin — 401, если пользователь не определён.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ctxmeta.PrincipalFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Principal — id пользователя текущего запроса ("" для анонима).
func Principal(c *gin.Context) string {
	id, _ := ctxmeta.PrincipalFromContext(c.Request.Context())
	return id
}

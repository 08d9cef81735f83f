package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/ctxmeta"
)

// quietPaths — служебные маршруты без журнала.
var quietPaths = map[string]struct{}{"/metrics": {}, "/ping": {}}

// RequestLogger — журнал запросов с request/trace/span id и пользователем.
// Уровень по статусу: 5xx — error, 4xx — warn, остальное — info.
func RequestLogger(log ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if _, quiet := quietPaths[path]; quiet {
			return
		}
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx := c.Request.Context()
		rid, _ := ctxmeta.RequestIDFromContext(ctx)
		tr, _ := ctxmeta.TraceIDFromContext(ctx)
		sp, _ := ctxmeta.SpanIDFromContext(ctx)
		user, _ := ctxmeta.PrincipalFromContext(ctx)

		status := c.Writer.Status()
		logf := levelFor(log, status)
		logf(ctx,
			"request id=%s trace=%s span=%s user=%s method=%s path=%s query=%s status=%d ip=%s duration=%s size=%d errors=%q",
			rid, tr, sp, user,
			c.Request.Method, path, c.Request.URL.RawQuery,
			status, c.ClientIP(), time.Since(start), c.Writer.Size(),
			c.Errors.ByType(gin.ErrorTypeAny).String(),
		)
	}
}

func levelFor(log ports.Logger, status int) func(context.Context, string, ...any) {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Errorf
	case status >= http.StatusBadRequest:
		return log.Warnf
	default:
		return log.Infof
	}
}

package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/apierr"
)

// ErrorBody — тело ответа с ошибкой: {"error": "...", "code": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AbortWithError — статус и сообщение из apierr; нетипизированные ошибки — 500 с общим текстом.
// Причина пишется в лог, клиенту уходит только сообщение.
func AbortWithError(c *gin.Context, log ports.Logger, err error) {
	status := apierr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Errorf(c.Request.Context(), "%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		log.Warnf(c.Request.Context(), "%s %s status=%d: %v", c.Request.Method, c.Request.URL.Path, status, err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: apierr.Message(err), Code: apierr.CodeOf(err)})
}

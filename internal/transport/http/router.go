package rest

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/yote/pkg/httpx"
)

// NewRouter — gin-роутер API товаров.
// staticDir (опционально) раздаётся на /static и /; serviceName — имя сервиса для otelgin.
func NewRouter(h *Handler, staticDir, serviceName string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.PrincipalMiddleware())
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := r.Group("/api/products")
	{
		products.GET("", h.listProducts)
		products.GET("/default", h.getDefault)
		products.GET("/logged-in", httpx.RequireLogin(), h.listMyProducts)
		products.GET("/:id", h.getProduct)

		products.POST("", httpx.RequireLogin(), h.createProduct)
		// custom-эндпоинт с обязательным параметром (например, для проверки прав в middleware)
		products.POST("/special/:requiredParam", httpx.RequireLogin(), h.createWithRequiredParam)

		products.PUT("/logged-in/:id", httpx.RequireLogin(), h.updateMyProduct)
		products.PUT("/:id", h.updateProduct)

		products.DELETE("/:id", httpx.RequireLogin(), h.deleteProduct)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpx.ErrorBody{Error: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, httpx.ErrorBody{Error: "method not allowed"})
	})

	if staticDir != "" {
		r.Static("/static", staticDir)
		r.StaticFile("/", filepath.Join(staticDir, "index.html"))
	}

	return r
}

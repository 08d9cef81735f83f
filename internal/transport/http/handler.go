package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/httpx"
)

const msgBadPayload = "Invalid Product payload"

// Handler — HTTP-обработчики товаров поверх ports.ProductService.
type Handler struct {
	service ports.ProductService
	log     ports.Logger
	timeout time.Duration
}

// NewHandler — timeout <= 0 отключает ограничение времени обработчика.
func NewHandler(service ports.ProductService, log ports.Logger, timeout time.Duration) *Handler {
	return &Handler{service: service, log: log, timeout: timeout}
}

// ctx — контекст запроса с таймаутом обработчика.
func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handler) getProduct(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.GetProduct(ctx, c.Param("id"))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) getDefault(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.DefaultProduct(ctx)
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	if product == nil {
		httpx.AbortWithError(c, h.log, apierr.NotFound("Error finding default Product"))
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	q, err := listquery.Parse(c.Request.URL.Query(), domain.ProductListFields)
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.service.ListProducts(ctx, q)
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) listMyProducts(c *gin.Context) {
	q, err := listquery.Parse(c.Request.URL.Query(), domain.ProductListFields)
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.service.ListMyProducts(ctx, q, httpx.Principal(c))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in domain.Product
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.AbortWithError(c, h.log, apierr.Wrap(http.StatusBadRequest, msgBadPayload, err))
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.CreateProduct(ctx, &in, httpx.Principal(c))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createWithRequiredParam(c *gin.Context) {
	var in domain.Product
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.AbortWithError(c, h.log, apierr.Wrap(http.StatusBadRequest, msgBadPayload, err))
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.CreateWithRequiredParam(ctx, c.Param("requiredParam"), &in, httpx.Principal(c))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httpx.AbortWithError(c, h.log, apierr.Wrap(http.StatusBadRequest, msgBadPayload, err))
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.UpdateProduct(ctx, c.Param("id"), patch)
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateMyProduct(c *gin.Context) {
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httpx.AbortWithError(c, h.log, apierr.Wrap(http.StatusBadRequest, msgBadPayload, err))
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.UpdateMyProduct(ctx, c.Param("id"), patch, httpx.Principal(c))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	product, err := h.service.DeleteProduct(ctx, c.Param("id"))
	if err != nil {
		httpx.AbortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

package ports

import (
	"context"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
)

// ProductService — прикладные операции над товарами для транспортного слоя.
type ProductService interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	DefaultProduct(ctx context.Context) (*domain.Product, error)
	ListProducts(ctx context.Context, q listquery.Query) (domain.ProductPage, error)
	ListMyProducts(ctx context.Context, q listquery.Query, principal string) (domain.ProductPage, error)
	CreateProduct(ctx context.Context, product *domain.Product, principal string) (*domain.Product, error)
	CreateWithRequiredParam(ctx context.Context, param string, product *domain.Product, principal string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	UpdateMyProduct(ctx context.Context, id string, patch domain.ProductPatch, principal string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (*domain.Product, error)
}

package ports

import (
	"context"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
)

// ProductRepository — хранилище товаров.
// Get/GetOwned/Delete возвращают (nil, nil), если записи нет;
// Update — domain.ErrNotFound.
type ProductRepository interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetOwned(ctx context.Context, id, createdBy string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, q listquery.Query) (domain.ProductPage, error)
	LastN(ctx context.Context, n int) ([]*domain.Product, error)
}

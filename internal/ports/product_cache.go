package ports

import (
	"context"

	"github.com/Gunvolt24/yote/internal/domain"
)

// ProductCache — серверный кэш одиночных товаров.
// Требования к реализации: потокобезопасность; возврат копий сущности.
type ProductCache interface {
	// Get — (product, true) при попадании, (nil, false) при промахе/истечении.
	Get(ctx context.Context, id string) (*domain.Product, bool)

	// Set — сохранить/обновить товар.
	Set(ctx context.Context, product *domain.Product) error

	// Delete — убрать товар (инвалидация по событию или после удаления).
	Delete(ctx context.Context, id string) error

	// WarmUp — массовая загрузка при старте; должна поддерживать отмену контекста.
	WarmUp(ctx context.Context, products []*domain.Product) error
}

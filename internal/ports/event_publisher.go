package ports

import (
	"context"

	"github.com/Gunvolt24/yote/internal/domain"
)

// EventPublisher — публикация событий изменения товаров.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ProductEvent) error
	Close() error
}

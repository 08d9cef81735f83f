package ports

import "context"

// MessageConsumer — фоновый читатель событий.
type MessageConsumer interface {
	Run(ctx context.Context) error
	Close() error
}

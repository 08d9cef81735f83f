package domain

import (
	"errors"
	"time"
)

// ErrInvalidEvent — сообщение нельзя разобрать как событие; повторная обработка бессмысленна.
var ErrInvalidEvent = errors.New("invalid product event")

// EventType — вид изменения ресурса.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// ProductEvent — сообщение об изменении товара (Kafka).
// Product пуст для deleted.
type ProductEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Product   *Product  `json:"product,omitempty"`
	Principal string    `json:"principal,omitempty"`
	At        time.Time `json:"at"`
}

// Validate — минимальная проверка формы события.
func (e ProductEvent) Validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Product == nil {
			return errors.New("event product is required")
		}
	case EventDeleted:
	default:
		return errors.New("unknown event type " + string(e.Type))
	}
	return nil
}

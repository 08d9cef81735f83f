package domain

import (
	"errors"
	"time"
)

// ErrNotFound — записи нет в хранилище.
var ErrNotFound = errors.New("not found")

// Значения статуса товара.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Product — ресурс «товар». Поля meta — произвольное дерево для вложенных настроек.
// Изменяемые поля сериализуются всегда: PUT шлёт товар целиком, и пропущенное
// поле сервер читает как «не менять».
type Product struct {
	ID          string         `json:"_id" validate:"required,max=64"`
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	Featured    bool           `json:"featured"`
	Status      string         `json:"status" validate:"omitempty,oneof=draft published archived"`
	Meta        map[string]any `json:"meta"`
	CreatedBy   string         `json:"_createdBy,omitempty" validate:"max=64"`
	Created     time.Time      `json:"created"`
	Updated     time.Time      `json:"updated"`
}

// ProductListFields — поля, по которым можно фильтровать и сортировать списки:
// имя поля в запросе (camelCase) → колонка хранилища.
var ProductListFields = map[string]string{
	"id":          "id",
	"title":       "title",
	"description": "description",
	"featured":    "featured",
	"status":      "status",
	"createdBy":   "created_by",
	"created":     "created_at",
	"updated":     "updated_at",
}

// DefaultProduct — товар со значениями по умолчанию (для формы создания).
func DefaultProduct() *Product {
	return &Product{
		Status: StatusDraft,
		Meta:   map[string]any{},
	}
}

// ResourceID — идентификатор для клиентского кэша.
func (p Product) ResourceID() string { return p.ID }

// Clone — копия с собственным деревом meta (все уровни).
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.Meta != nil {
		c.Meta = cloneMap(p.Meta)
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ProductPatch — частичное обновление (аналог Object.assign поверх сохранённой записи).
// nil-поле означает «не менять».
type ProductPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Featured    *bool          `json:"featured,omitempty"`
	Status      *string        `json:"status,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Apply — накладывает патч на товар.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Featured != nil {
		p.Featured = *pp.Featured
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Meta != nil {
		p.Meta = cloneMap(pp.Meta)
	}
}

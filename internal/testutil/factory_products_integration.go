//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/Gunvolt24/yote/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// MakeProduct — мини-генератор валидного товара.
func MakeProduct(opts ...func(*domain.Product)) domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := domain.Product{
		ID:          "prd-" + UniqSuffix(),
		Title:       "Widget " + UniqSuffix(),
		Description: "test product",
		Status:      domain.StatusDraft,
		Meta:        map[string]any{"color": "blue", "size": "M"},
		CreatedBy:   "user-" + UniqSuffix(),
		Created:     now,
		Updated:     now,
	}

	for _, fn := range opts {
		fn(&p)
	}
	return p
}

func WithCreator(userID string) func(*domain.Product) {
	return func(p *domain.Product) { p.CreatedBy = userID }
}

func WithFeatured(featured bool) func(*domain.Product) {
	return func(p *domain.Product) { p.Featured = featured }
}

func WithCreated(at time.Time) func(*domain.Product) {
	return func(p *domain.Product) {
		p.Created = at
		p.Updated = at
	}
}

func WithStatus(status string) func(*domain.Product) {
	return func(p *domain.Product) { p.Status = status }
}

package validate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/pkg/validate"
)

func validProduct() *domain.Product {
	return &domain.Product{
		ID:     "p-1",
		Title:  "Desk lamp",
		Status: domain.StatusPublished,
		Meta:   map[string]any{"color": "blue", "dims": map[string]any{"w": 10.0}},
	}
}

func TestProductValidator_Validate(t *testing.T) {
	v := validate.NewProductValidator()
	ctx := context.Background()

	t.Run("valid product", func(t *testing.T) {
		if err := v.Validate(ctx, validProduct()); err != nil {
			t.Fatalf("expected valid product, got: %v", err)
		}
	})

	type testCase struct {
		name        string
		makeProduct func() *domain.Product
		msg         string
	}

	cases := []testCase{
		{
			name:        "nil product",
			makeProduct: func() *domain.Product { return nil },
			msg:         "nil",
		},
		{
			name: "missing id",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.ID = ""
				return p
			},
			msg: "_id",
		},
		{
			name: "missing title",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.Title = ""
				return p
			},
			msg: "title",
		},
		{
			name: "title too long",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.Title = strings.Repeat("x", 201)
				return p
			},
			msg: "max",
		},
		{
			name: "unknown status",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.Status = "sold"
				return p
			},
			msg: "status",
		},
		{
			name: "dotted meta key",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.Meta = map[string]any{"a.b": 1}
				return p
			},
			msg: "a.b",
		},
		{
			name: "nested empty meta key",
			makeProduct: func() *domain.Product {
				p := validProduct()
				p.Meta = map[string]any{"dims": map[string]any{"": 1}}
				return p
			},
			msg: "meta.dims",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(ctx, tc.makeProduct())
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !errors.Is(err, validate.ErrInvalidProduct) {
				t.Fatalf("expected ErrInvalidProduct, got: %v", err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected message to contain %q, got: %v", tc.msg, err)
			}
		})
	}

	t.Run("empty status allowed", func(t *testing.T) {
		p := validProduct()
		p.Status = ""
		if err := v.Validate(ctx, p); err != nil {
			t.Fatalf("empty status must pass, got: %v", err)
		}
	})
}

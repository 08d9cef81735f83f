package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/ports"
)

// Проверка, что ProductValidator удовлетворяет интерфейсу ProductValidator.
var _ ports.ProductValidator = (*ProductValidator)(nil)

// ErrInvalidProduct — базовая (sentinel error) ошибка валидации.
var ErrInvalidProduct = errors.New("product validation failed")

// ProductValidator — проверка товара по тегам validate (go-playground/validator)
// плюс правила, которые тегами не выразить.
type ProductValidator struct {
	v *validator.Validate
}

// NewProductValidator — конструктор ProductValidator.
// Возвращает ErrInvalidProduct (с обёрнутой причиной) при любой проблеме.
func NewProductValidator() *ProductValidator {
	return &ProductValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate — проверяет корректность полей товара.
func (pv *ProductValidator) Validate(ctx context.Context, product *domain.Product) error {
	if product == nil {
		return fmt.Errorf("%w: товар не может быть nil", ErrInvalidProduct)
	}
	if err := pv.v.StructCtx(ctx, product); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s не проходит правило %q", ErrInvalidProduct, fieldPath(fe), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	return validateMeta(product.Meta, "meta")
}

// validateMeta — ключи meta адресуются точечными путями, поэтому пустые ключи и точки запрещены.
func validateMeta(m map[string]any, prefix string) error {
	for k, v := range m {
		if k == "" || strings.Contains(k, ".") {
			return fmt.Errorf("%w: %s содержит недопустимый ключ %q", ErrInvalidProduct, prefix, k)
		}
		if nested, ok := v.(map[string]any); ok {
			if err := validateMeta(nested, prefix+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

// fieldPath — имя поля по json-тегу (Product.Title → title).
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch ns {
	case "ID":
		return "_id"
	case "CreatedBy":
		return "_createdBy"
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}

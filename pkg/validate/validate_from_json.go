package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/ports"
)

// ErrMalformedJSON — вход не разбирается как товар (синтаксис, лишние поля, хвост).
var ErrMalformedJSON = errors.New("invalid json")

// DecodeProduct — строгий разбор одного товара: неизвестные поля и данные после объекта запрещены.
func DecodeProduct(raw []byte) (*domain.Product, error) {
	var product domain.Product
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedJSON)
	}
	return &product, nil
}

// ValidateProductFromJSON — DecodeProduct + правила валидатора.
func ValidateProductFromJSON(ctx context.Context, validator ports.ProductValidator, raw []byte) (*domain.Product, error) {
	product, err := DecodeProduct(raw)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ValidateJSONDocument — JSON-документ с одним товаром или массивом товаров.
// Валидные записи пишутся в ow каноническим JSON по одной на строку.
func ValidateJSONDocument(ctx context.Context, validator ports.ProductValidator, raw []byte, ow io.Writer) (Report, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var rep Report
		product, err := ValidateProductFromJSON(ctx, validator, trimmed)
		if err != nil {
			rep.reject(1, err)
			return rep, nil
		}
		return rep, rep.accept(ow, product)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	var rep Report
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		product, err := ValidateProductFromJSON(ctx, validator, item)
		if err != nil {
			rep.reject(i+1, err)
			continue
		}
		if err := rep.accept(ow, product); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

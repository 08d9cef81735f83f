package validate

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/yote/internal/domain"
)

// Problem — невалидная запись: номер (строка JSONL или позиция в массиве, с 1) и причина.
type Problem struct {
	Record int
	Err    error
}

func (p Problem) String() string { return fmt.Sprintf("record %d: %v", p.Record, p.Err) }

// Report — итог проверки входа.
type Report struct {
	Valid    int
	Invalid  int
	Problems []Problem
}

// String — "N valid / M invalid".
func (r Report) String() string { return fmt.Sprintf("%d valid / %d invalid", r.Valid, r.Invalid) }

// OK — ни одной невалидной записи.
func (r Report) OK() bool { return r.Invalid == 0 }

func (r *Report) reject(record int, err error) {
	r.Invalid++
	r.Problems = append(r.Problems, Problem{Record: record, Err: err})
}

// accept — каноническая запись товара одной строкой.
func (r *Report) accept(ow io.Writer, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", product.ID, err)
	}
	data = append(data, '\n')
	if _, err := ow.Write(data); err != nil {
		return fmt.Errorf("write valid record: %w", err)
	}
	r.Valid++
	return nil
}

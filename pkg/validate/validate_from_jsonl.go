package validate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Gunvolt24/yote/internal/ports"
)

// maxLineSize — предел одной строки JSONL.
const maxLineSize = 10 * 1024 * 1024

// ValidateJSONLStream — читает JSONL, валидирует каждую строку, валидные пишет в ow.
// Пустые строки пропускаются; номер записи в Problem — номер строки во входе.
func ValidateJSONLStream(ctx context.Context, validator ports.ProductValidator, ir io.Reader, ow io.Writer) (Report, error) {
	var rep Report

	scanner := bufio.NewScanner(ir)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		product, err := ValidateProductFromJSON(ctx, validator, raw)
		if err != nil {
			rep.reject(line, err)
			continue
		}
		if err := rep.accept(ow, product); err != nil {
			return rep, err
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, fmt.Errorf("scan line %d: %w", line+1, err)
	}
	return rep, nil
}

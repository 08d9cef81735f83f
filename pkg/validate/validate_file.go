package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/yote/internal/ports"
)

// InputFormat — формат входного файла.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// ParseFormat — формат из флага CLI; пустая строка — auto.
func ParseFormat(s string) (InputFormat, error) {
	switch f := InputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatJSON, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// FormatFor — auto по расширению: .jsonl/.ndjson → jsonl, остальное → json.
func FormatFor(path string, format InputFormat) InputFormat {
	if format != FormatAuto {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatJSON
	}
}

// ValidateFile — проверяет файл как JSON (объект или массив) или JSONL; валидные записи пишет в ow.
func ValidateFile(ctx context.Context, validator ports.ProductValidator, filePath string, format InputFormat, ow io.Writer) (Report, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Report{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return ValidateReader(ctx, validator, file, FormatFor(filePath, format), ow)
}

// ValidateReader — то же для произвольного reader; FormatAuto здесь означает JSONL.
func ValidateReader(ctx context.Context, validator ports.ProductValidator, ir io.Reader, format InputFormat, ow io.Writer) (Report, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(ir)
		if err != nil {
			return Report{}, fmt.Errorf("read input: %w", err)
		}
		return ValidateJSONDocument(ctx, validator, raw, ow)
	case FormatJSONL, FormatAuto:
		return ValidateJSONLStream(ctx, validator, ir, ow)
	default:
		return Report{}, fmt.Errorf("unsupported format: %s", format)
	}
}

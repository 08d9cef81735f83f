// Пакет querystring — каноническая строка запроса для фильтров списков.
// Строка служит ключом кэша, поэтому порядок ключей фиксирован (сортировка).
package querystring

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// All — литерал «без фильтра»; кодируется в пустую строку.
const All = "all"

// Args — объект фильтра: ключ → значение (строка, число, bool, срез или nil).
type Args map[string]any

// Clone — поверхностная копия аргументов.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Encode — args → "key=value&...". Пустые и «ложные» значения (nil, "", false, 0,
// пустой срез) пропускаются; срезы склеиваются через запятую.
func Encode(args Args) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		v, ok := formatValue(args[k])
		if !ok {
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+v)
	}
	return strings.Join(parts, "&")
}

// EncodeAll — как Encode, но принимает и литерал "all" (или nil) как «без фильтра».
// Готовая строка запроса приводится к канонической форме Encode.
func EncodeAll(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == All {
			return ""
		}
		return Encode(decodeLists(t))
	case Args:
		return Encode(t)
	case map[string]any:
		return Encode(Args(t))
	default:
		return ""
	}
}

// Decode — "?a-b=1&c=x" → {"aB": "1", "c": "x"}.
// Берётся часть после первого '?', ключи приводятся к camelCase,
// пары с пустым ключом отбрасываются. Значения остаются строками.
func Decode(query string) Args {
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	}
	out := Args{}
	if query == "" {
		return out
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key := CamelCase(unescape(rawKey))
		if key == "" {
			continue
		}
		out[key] = unescape(rawVal)
	}
	return out
}

// decodeLists — как Decode, но значения через запятую становятся срезами,
// чтобы Encode склеил их обратно без экранирования запятой.
func decodeLists(query string) Args {
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	}
	out := Args{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key := CamelCase(unescape(rawKey))
		if key == "" {
			continue
		}
		parts := strings.Split(rawVal, ",")
		if len(parts) == 1 {
			out[key] = unescape(rawVal)
			continue
		}
		items := make([]string, len(parts))
		for i, p := range parts {
			items[i] = unescape(p)
		}
		out[key] = items
	}
	return out
}

// IsReady — можно ли по этим аргументам делать запрос.
// nil — нет; пустой объект — да («всё»); любое значение nil, "" или пустой срез — нет.
func IsReady(args Args) bool {
	if args == nil {
		return false
	}
	for _, v := range args {
		if v == nil {
			return false
		}
		if s, ok := v.(string); ok && s == "" {
			return false
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return false
			}
		case reflect.Pointer, reflect.Interface, reflect.Map:
			if rv.IsNil() {
				return false
			}
		}
	}
	return true
}

// Key — ключ кэша: "/{endpoint}?{qs}" либо "?{qs}" без endpoint.
func Key(endpoint string, args Args) string {
	qs := Encode(args)
	if endpoint == "" {
		return "?" + qs
	}
	return "/" + strings.TrimPrefix(endpoint, "/") + "?" + qs
}

// Page — номер страницы и размер из аргументов (числа или числовые строки).
func Page(args Args) (page, per int, ok bool) {
	page, okPage := toInt(args["page"])
	per, okPer := toInt(args["per"])
	if !okPage || !okPer || page < 1 || per < 1 {
		return 0, 0, false
	}
	return page, per, true
}

// WithPage — копия аргументов с заданным номером страницы.
func WithPage(args Args, page int) Args {
	out := args.Clone()
	if out == nil {
		out = Args{}
	}
	out["page"] = page
	return out
}

func formatValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" {
			return "", false
		}
		return url.QueryEscape(t), true
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case []string:
		if len(t) == 0 {
			return "", false
		}
		items := make([]string, len(t))
		for i, s := range t {
			items[i] = url.QueryEscape(s)
		}
		return strings.Join(items, ","), true
	case fmt.Stringer:
		s := t.String()
		return url.QueryEscape(s), s != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() == 0 {
			return "", false
		}
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() == 0 {
			return "", false
		}
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		if rv.Float() == 0 {
			return "", false
		}
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return "", false
		}
		items := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = url.QueryEscape(fmt.Sprint(rv.Index(i).Interface()))
		}
		return strings.Join(items, ","), true
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false
		}
		return formatValue(rv.Elem().Interface())
	}
	s := fmt.Sprint(v)
	return url.QueryEscape(s), s != ""
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		return int(t), t == float64(int(t))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

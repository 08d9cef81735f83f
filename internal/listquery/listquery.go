// Пакет listquery — разбор параметров списочных запросов в описание выборки.
// Рендер в SQL делает репозиторий; здесь только правила: фильтры, пагинация, сортировка, лимит.
package listquery

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/querystring"
)

const (
	DefaultLimit = 500
	MaxPer       = 100

	keyPage  = "page"
	keyPer   = "per"
	keySort  = "sort"
	keyLimit = "limit"
)

// Condition — поле должно совпасть с одним из значений.
type Condition struct {
	Column string
	Values []string
}

type Pagination struct {
	Page int
	Per  int
}

type SortField struct {
	Column string
	Desc   bool
}

// Query — разобранный списочный запрос.
// CreatedBy != "" сужает выборку до записей автора.
type Query struct {
	Filter     []Condition
	Pagination *Pagination
	Sort       []SortField
	Limit      int
	CreatedBy  string
}

// Paginated — нужен ли подсчёт totalCount/totalPages.
func (q Query) Paginated() bool { return q.Pagination != nil }

// Skip — смещение (page-1)*per; 0 без пагинации.
func (q Query) Skip() int {
	if q.Pagination == nil {
		return 0
	}
	return (q.Pagination.Page - 1) * q.Pagination.Per
}

// Take — сколько строк выбрать: per при пагинации, иначе лимит.
func (q Query) Take() int {
	if q.Pagination != nil {
		return q.Pagination.Per
	}
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// TotalPages — ceil(count/per).
func (q Query) TotalPages(count int) int {
	if q.Pagination == nil || q.Pagination.Per <= 0 {
		return 0
	}
	return (count + q.Pagination.Per - 1) / q.Pagination.Per
}

// ScopedTo — копия запроса, ограниченная записями principal.
func (q Query) ScopedTo(principal string) Query {
	q.CreatedBy = principal
	return q
}

// Parse — url-параметры → Query.
// fields — белый список: имя поля в camelCase → колонка хранилища.
// Неизвестные ключи и кривые числа дают 400.
func Parse(values url.Values, fields map[string]string) (Query, error) {
	q := Query{Limit: DefaultLimit}

	if err := parsePagination(values, &q); err != nil {
		return Query{}, err
	}
	if raw := values.Get(keyLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Query{}, apierr.BadRequest(fmt.Sprintf("Invalid limit %q", raw))
		}
		if n < DefaultLimit {
			q.Limit = n
		}
	}
	if raw := values.Get(keySort); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			desc := strings.HasPrefix(f, "-")
			f = strings.TrimPrefix(f, "-")
			if f == "" {
				continue
			}
			col, ok := fields[querystring.CamelCase(f)]
			if !ok {
				return Query{}, apierr.BadRequest(fmt.Sprintf("Invalid sort field %q", f))
			}
			q.Sort = append(q.Sort, SortField{Column: col, Desc: desc})
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case keyPage, keyPer, keySort, keyLimit:
			continue
		}
		col, ok := fields[querystring.CamelCase(k)]
		if !ok {
			return Query{}, apierr.BadRequest(fmt.Sprintf("Invalid filter %q", k))
		}
		var vals []string
		for _, v := range values[k] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					vals = append(vals, part)
				}
			}
		}
		if len(vals) == 0 {
			continue
		}
		q.Filter = append(q.Filter, Condition{Column: col, Values: vals})
	}
	return q, nil
}

func parsePagination(values url.Values, q *Query) error {
	rawPage, rawPer := values.Get(keyPage), values.Get(keyPer)
	if rawPage == "" && rawPer == "" {
		return nil
	}
	if rawPage == "" || rawPer == "" {
		return apierr.BadRequest("Pagination requires both page and per")
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		return apierr.BadRequest(fmt.Sprintf("Invalid page %q", rawPage))
	}
	per, err := strconv.Atoi(rawPer)
	if err != nil || per < 1 {
		return apierr.BadRequest(fmt.Sprintf("Invalid per %q", rawPer))
	}
	if per > MaxPer {
		per = MaxPer
	}
	q.Pagination = &Pagination{Page: page, Per: per}
	return nil
}

package listquery_test

import (
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/Gunvolt24/yote/internal/listquery"
	"github.com/Gunvolt24/yote/pkg/apierr"
)

var fields = map[string]string{
	"featured":  "featured",
	"status":    "status",
	"title":     "title",
	"created":   "created_at",
	"createdBy": "created_by",
}

func TestParse_Empty_DefaultLimitNoPagination(t *testing.T) {
	q, err := listquery.Parse(url.Values{}, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q.Paginated() || q.Limit != listquery.DefaultLimit || q.Take() != listquery.DefaultLimit {
		t.Fatalf("unexpected query: %+v", q)
	}
	if q.Skip() != 0 || len(q.Filter) != 0 || len(q.Sort) != 0 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestParse_Pagination(t *testing.T) {
	q, err := listquery.Parse(url.Values{"page": {"3"}, "per": {"20"}}, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !q.Paginated() || q.Skip() != 40 || q.Take() != 20 {
		t.Fatalf("page 3 per 20: skip=%d take=%d", q.Skip(), q.Take())
	}
	if got := q.TotalPages(41); got != 3 {
		t.Fatalf("TotalPages(41) = %d, want 3", got)
	}
	if got := q.TotalPages(40); got != 2 {
		t.Fatalf("TotalPages(40) = %d, want 2", got)
	}
	if got := q.TotalPages(0); got != 0 {
		t.Fatalf("TotalPages(0) = %d, want 0", got)
	}
}

func TestParse_PerIsCapped(t *testing.T) {
	q, err := listquery.Parse(url.Values{"page": {"1"}, "per": {"1000"}}, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q.Pagination.Per != listquery.MaxPer {
		t.Fatalf("per = %d, want %d", q.Pagination.Per, listquery.MaxPer)
	}
}

func TestParse_FiltersSortLimit(t *testing.T) {
	v := url.Values{
		"status":   {"draft,published"},
		"featured": {"true"},
		"sort":     {"-created,title"},
		"limit":    {"25"},
	}
	q, err := listquery.Parse(v, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	wantFilter := []listquery.Condition{
		{Column: "featured", Values: []string{"true"}},
		{Column: "status", Values: []string{"draft", "published"}},
	}
	if !reflect.DeepEqual(q.Filter, wantFilter) {
		t.Fatalf("filter = %+v, want %+v", q.Filter, wantFilter)
	}
	wantSort := []listquery.SortField{{Column: "created_at", Desc: true}, {Column: "title"}}
	if !reflect.DeepEqual(q.Sort, wantSort) {
		t.Fatalf("sort = %+v, want %+v", q.Sort, wantSort)
	}
	if q.Limit != 25 || q.Take() != 25 {
		t.Fatalf("limit = %d", q.Limit)
	}
}

func TestParse_SnakeAndKebabKeysAreCamelCased(t *testing.T) {
	q, err := listquery.Parse(url.Values{"created_by": {"u1"}}, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(q.Filter) != 1 || q.Filter[0].Column != "created_by" {
		t.Fatalf("filter = %+v", q.Filter)
	}
}

func TestParse_LimitAboveDefaultIsCapped(t *testing.T) {
	q, err := listquery.Parse(url.Values{"limit": {"10000"}}, fields)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q.Limit != listquery.DefaultLimit {
		t.Fatalf("limit = %d, want %d", q.Limit, listquery.DefaultLimit)
	}
}

func TestParse_BadInput(t *testing.T) {
	cases := map[string]url.Values{
		"unknown filter": {"password": {"x"}},
		"unknown sort":   {"sort": {"-password"}},
		"page only":      {"page": {"1"}},
		"zero page":      {"page": {"0"}, "per": {"10"}},
		"bad per":        {"page": {"1"}, "per": {"ten"}},
		"bad limit":      {"limit": {"-1"}},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := listquery.Parse(v, fields)
			if err == nil {
				t.Fatalf("expected error")
			}
			if apierr.Status(err) != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", apierr.Status(err))
			}
		})
	}
}

func TestScopedTo_ReturnsCopy(t *testing.T) {
	q := listquery.Query{Limit: 10}
	scoped := q.ScopedTo("user-1")
	if scoped.CreatedBy != "user-1" || q.CreatedBy != "" {
		t.Fatalf("scoped=%+v source=%+v", scoped, q)
	}
}

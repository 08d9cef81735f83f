package lens_test

import (
	"errors"
	"testing"

	"github.com/Gunvolt24/yote/pkg/lens"
)

func TestSet_NestedPath_Immutable(t *testing.T) {
	draft := lens.Tree{"meta": map[string]any{"color": "blue", "size": "M"}, "title": "A"}

	p, err := lens.ParsePath("meta.color")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	next := lens.Set(draft, p, "red")

	want := lens.Tree{"meta": map[string]any{"color": "red", "size": "M"}, "title": "A"}
	if !lens.Equal(next, want) {
		t.Fatalf("Set result = %v, want %v", next, want)
	}
	// исходник не тронут
	if draft["meta"].(map[string]any)["color"] != "blue" {
		t.Fatalf("source tree was mutated: %v", draft)
	}
}

func TestSet_CreatesMissingNodes(t *testing.T) {
	p, _ := lens.ParsePath("a.b.c")
	got := lens.Set(lens.Tree{"a": "scalar"}, p, 1)

	v, ok := lens.Get(got, p)
	if !ok || v != 1 {
		t.Fatalf("Get(a.b.c) = %v,%v", v, ok)
	}
}

func TestSet_SharesUntouchedBranches(t *testing.T) {
	other := lens.Tree{"x": 1}
	draft := lens.Tree{"other": other, "meta": lens.Tree{"color": "blue"}}

	next := lens.Set(draft, lens.Path{"meta", "color"}, "red")

	if got, ok := next["other"].(lens.Tree); !ok || got["x"] != 1 {
		t.Fatalf("untouched branch lost: %v", next)
	}
}

func TestParsePath_Errors(t *testing.T) {
	if _, err := lens.ParsePath(""); !errors.Is(err, lens.ErrEmptyPath) {
		t.Fatalf("want ErrEmptyPath, got %v", err)
	}
	if _, err := lens.ParsePath("a..b"); !errors.Is(err, lens.ErrInvalidPath) {
		t.Fatalf("want ErrInvalidPath, got %v", err)
	}
	if p, _ := lens.ParsePath("a.b"); p.String() != "a.b" {
		t.Fatalf("Path.String() = %q", p.String())
	}
}

func TestMerge_OverWins(t *testing.T) {
	base := lens.Tree{"_id": "x", "featured": false, "title": "A"}
	got := lens.Merge(base, lens.Tree{"featured": true})

	want := lens.Tree{"_id": "x", "featured": true, "title": "A"}
	if !lens.Equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
	if base["featured"] != false {
		t.Fatalf("base mutated")
	}
}

type sample struct {
	ID    string         `json:"_id"`
	Count int            `json:"count"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func TestFromValueToValue(t *testing.T) {
	tree, err := lens.FromValue(sample{ID: "x", Count: 2, Meta: map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	if tree["_id"] != "x" {
		t.Fatalf("tree = %v", tree)
	}

	back, err := lens.ToValue[sample](lens.Set(tree, lens.Path{"count"}, 5))
	if err != nil {
		t.Fatalf("ToValue: %v", err)
	}
	if back.ID != "x" || back.Count != 5 || back.Meta["k"] != "v" {
		t.Fatalf("ToValue = %+v", back)
	}

	empty, err := lens.FromValue(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("FromValue(nil) = %v, %v", empty, err)
	}
}

func TestEqual_NormalizesNumbersAndNodes(t *testing.T) {
	a := lens.Tree{"n": 1, "m": lens.Tree{"k": "v"}}
	b := lens.Tree{"n": 1.0, "m": map[string]any{"k": "v"}}
	if !lens.Equal(a, b) {
		t.Fatalf("trees must be equal")
	}
	if lens.Equal(a, lens.Tree{"n": 2}) {
		t.Fatalf("trees must differ")
	}
}

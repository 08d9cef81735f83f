// Пакет lens — неизменяемое обновление дерева значений по пути.
// Используется черновиком формы: правка одного поля копирует только узлы на пути.
package lens

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrEmptyPath   = errors.New("lens: empty path")
	ErrInvalidPath = errors.New("lens: invalid path")
)

// Tree — явное дерево: листья — значения, внутренние узлы — Tree (или map[string]any после JSON).
type Tree map[string]any

// Path — путь по ключам от корня.
type Path []string

// ParsePath — "a.b.c" → Path{"a","b","c"}; пустые сегменты недопустимы.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has empty segment at %d", ErrInvalidPath, s, i)
		}
	}
	return Path(parts), nil
}

func (p Path) String() string { return strings.Join(p, ".") }

// Set — новое дерево со значением v по пути p. Исходное дерево не меняется;
// соседние ветки разделяются между старым и новым деревом.
// Отсутствующие или не-узловые промежуточные значения заменяются новыми узлами.
func Set(t Tree, p Path, v any) Tree {
	if len(p) == 0 {
		return t
	}
	out := make(Tree, len(t)+1)
	for k, val := range t {
		out[k] = val
	}
	if len(p) == 1 {
		out[p[0]] = v
		return out
	}
	child, _ := asTree(t[p[0]])
	out[p[0]] = Set(child, p[1:], v)
	return out
}

// Get — значение по пути.
func Get(t Tree, p Path) (any, bool) {
	if len(p) == 0 {
		return t, t != nil
	}
	cur := t
	for i, key := range p {
		val, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(p)-1 {
			return val, true
		}
		if cur, ok = asTree(val); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Merge — поверхностное слияние: ключи over побеждают.
func Merge(base, over Tree) Tree {
	out := make(Tree, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// FromValue — типизированный ресурс → дерево через его JSON-представление.
func FromValue(v any) (Tree, error) {
	if v == nil {
		return Tree{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("lens: marshal: %w", err)
	}
	if string(raw) == "null" {
		return Tree{}, nil
	}
	var t Tree
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("lens: value is not an object: %w", err)
	}
	return t, nil
}

// ToValue — дерево → типизированный ресурс.
func ToValue[T any](t Tree) (T, error) {
	var out T
	raw, err := json.Marshal(t)
	if err != nil {
		return out, fmt.Errorf("lens: marshal: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("lens: unmarshal: %w", err)
	}
	return out, nil
}

// Equal — глубокое сравнение по нормализованному JSON (числа, вложенные узлы).
func Equal(a, b Tree) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(t Tree) (any, error) {
	if t == nil {
		t = Tree{}
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(raw, &out)
	return out, err
}

func asTree(v any) (Tree, bool) {
	switch t := v.(type) {
	case Tree:
		return t, true
	case map[string]any:
		return Tree(t), true
	}
	return nil, false
}

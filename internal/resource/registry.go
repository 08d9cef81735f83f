package resource

import (
	"fmt"
	"sync"
)

type resettable interface {
	Name() string
	Reset()
}

// Registry — стораджи всех видов ресурсов клиента.
// Передаётся явно тем, кто собирает клиентский слой; Reset — сброс при истёкшей сессии.
type Registry struct {
	mu     sync.Mutex
	stores map[string]resettable
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]resettable)}
}

// StoreFor — стор ресурса name; создаётся при первом обращении.
// Повторное обращение с другим типом — ошибка программиста.
func StoreFor[T Identifiable](r *Registry, name string) *Store[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[name]; ok {
		s, ok := existing.(*Store[T])
		if !ok {
			panic(fmt.Sprintf("resource: store %q registered with another type %T", name, existing))
		}
		return s
	}
	s := NewStore[T](name)
	r.stores[name] = s
	return s
}

// Names — зарегистрированные виды ресурсов.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.stores))
	for name := range r.stores {
		out = append(out, name)
	}
	return out
}

// Reset — сбросить все стораджи.
func (r *Registry) Reset() {
	r.mu.Lock()
	stores := make([]resettable, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()

	for _, s := range stores {
		s.Reset()
	}
}

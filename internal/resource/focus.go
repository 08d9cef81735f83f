package resource

import "sync"

// Focus — признак «потребитель на экране». Запросы запускаются только в фокусе;
// возврат фокуса перезапускает синхронизацию запросов (устаревшие данные догружаются).
type Focus interface {
	Focused() bool
	OnChange(fn func(focused bool)) (cancel func())
}

// AlwaysFocused — фокус без переключений (CLI, фоновые процессы).
type AlwaysFocused struct{}

func (AlwaysFocused) Focused() bool                       { return true }
func (AlwaysFocused) OnChange(func(bool)) (cancel func()) { return func() {} }

// ManualFocus — фокус, переключаемый вызывающим.
type ManualFocus struct {
	mu      sync.Mutex
	focused bool
	next    uint64
	subs    map[uint64]func(bool)
}

func NewManualFocus(focused bool) *ManualFocus {
	return &ManualFocus{focused: focused, subs: make(map[uint64]func(bool))}
}

func (f *ManualFocus) Focused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// Set — сменить состояние; подписчики вызываются только при реальном изменении.
func (f *ManualFocus) Set(focused bool) {
	f.mu.Lock()
	if f.focused == focused {
		f.mu.Unlock()
		return
	}
	f.focused = focused
	subs := make([]func(bool), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(focused)
	}
}

func (f *ManualFocus) OnChange(fn func(bool)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

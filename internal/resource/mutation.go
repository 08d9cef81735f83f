package resource

import (
	"context"
	"errors"
	"sync"

	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/lens"
)

// ErrNothingToUndo — у ресурса нет предыдущей версии.
var ErrNothingToUndo = errors.New("resource: nothing to undo")

// SendFunc — отправка черновика на сервер (обычно Service.Create или Service.Update).
type SendFunc[T any] func(ctx context.Context, item T) (T, error)

type MutationOption func(*mutationOptions)

type mutationOptions struct {
	initial    lens.Tree
	onResponse func(result any, errMsg string)
	isCreate   bool
}

// WithInitialState — значения поверх загруженного ресурса; побеждают при совпадении ключей.
func WithInitialState(t lens.Tree) MutationOption {
	return func(o *mutationOptions) { o.initial = t }
}

// WithOnResponse — колбэк результата: (ресурс, "") при успехе, (nil, сообщение) при ошибке.
func WithOnResponse[T any](fn func(result *T, errMsg string)) MutationOption {
	return func(o *mutationOptions) {
		o.onResponse = func(result any, errMsg string) {
			r, _ := result.(*T)
			fn(r, errMsg)
		}
	}
}

// AsCreate — режим создания: после успеха черновик сбрасывается к значениям по умолчанию.
func AsCreate() MutationOption {
	return func(o *mutationOptions) { o.isCreate = true }
}

// Mutation — черновик формы поверх одиночного запроса.
type Mutation[T any] struct {
	query    SingleQuery[T]
	send     SendFunc[T]
	opts     mutationOptions
	cancelFn func()

	mu      sync.Mutex
	draft   lens.Tree
	waiting bool
}

// NewMutation — черновик, засеянный данными запроса и initialState.
// Пока сервер не ответил, черновик равен initialState; после ответа данные
// подмешиваются под уже введённые значения.
func NewMutation[T any](query SingleQuery[T], send SendFunc[T], opts ...MutationOption) *Mutation[T] {
	m := &Mutation[T]{query: query, send: send}
	for _, opt := range opts {
		opt(&m.opts)
	}
	if m.opts.initial == nil {
		m.opts.initial = lens.Tree{}
	}
	m.draft = lens.Merge(nil, m.opts.initial)
	m.Refresh()
	m.cancelFn = query.Subscribe(m.Refresh)
	return m
}

// Refresh — подмешать данные сервера под текущий черновик, если они что-то меняют.
func (m *Mutation[T]) Refresh() {
	data := m.serverTree()
	if data == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := lens.Merge(data, m.draft)
	if !lens.Equal(merged, m.draft) {
		m.draft = merged
	}
}

// SetInitialState — initialState изменился (например, пришли зависимые данные).
func (m *Mutation[T]) SetInitialState(t lens.Tree) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t == nil {
		t = lens.Tree{}
	}
	m.opts.initial = t
	merged := lens.Merge(m.draft, t)
	if !lens.Equal(merged, m.draft) {
		m.draft = merged
	}
}

// Data — текущий черновик. Дерево не изменяется на месте, его можно читать без копирования.
func (m *Mutation[T]) Data() lens.Tree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// Value — черновик как типизированный ресурс.
func (m *Mutation[T]) Value() (T, error) {
	return lens.ToValue[T](m.Data())
}

// HandleChange — правка одного поля по пути "a.b.c".
func (m *Mutation[T]) HandleChange(name string, value any) error {
	p, err := lens.ParsePath(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.draft = lens.Set(m.draft, p, value)
	m.mu.Unlock()
	return nil
}

// SetFormState — заменить черновик целиком.
func (m *Mutation[T]) SetFormState(t lens.Tree) {
	if t == nil {
		t = lens.Tree{}
	}
	m.mu.Lock()
	m.draft = t
	m.mu.Unlock()
}

// ResetFormState — черновик = данные сервера + initialState.
func (m *Mutation[T]) ResetFormState() {
	data := m.serverTree()
	m.mu.Lock()
	m.draft = lens.Merge(data, m.opts.initial)
	m.mu.Unlock()
}

// HandleSubmit — отправить черновик целиком.
func (m *Mutation[T]) HandleSubmit(ctx context.Context) error {
	_, err := m.SendMutation(ctx, nil)
	return err
}

// SendMutation — отправить черновик с наложенными поверх значениями patch.
func (m *Mutation[T]) SendMutation(ctx context.Context, patch lens.Tree) (*T, error) {
	m.mu.Lock()
	payload := lens.Merge(m.draft, patch)
	m.waiting = true
	m.mu.Unlock()

	item, err := lens.ToValue[T](payload)
	if err != nil {
		return m.handleResponse(nil, apierr.Wrap(0, apierr.GenericMessage, err))
	}
	return m.submit(ctx, item)
}

// CanUndo — есть ли версия для отката.
func (m *Mutation[T]) CanUndo() bool {
	return m.query.Result().PreviousVersion != nil
}

// HandleUndoUpdate — повторно отправить предыдущую версию ресурса.
func (m *Mutation[T]) HandleUndoUpdate(ctx context.Context) error {
	prev := m.query.Result().PreviousVersion
	if prev == nil {
		return ErrNothingToUndo
	}
	m.mu.Lock()
	m.waiting = true
	m.mu.Unlock()
	_, err := m.submit(ctx, *prev)
	return err
}

// IsChanged — черновик отличается от загруженного ресурса.
func (m *Mutation[T]) IsChanged() bool {
	data := m.serverTree()
	if data == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft != nil && !lens.Equal(m.draft, data)
}

// IsWaiting — мутация отправлена, ответа ещё нет.
func (m *Mutation[T]) IsWaiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// Result — снимок запроса; IsFetching учитывает ожидание ответа на мутацию.
func (m *Mutation[T]) Result() Snapshot[T] {
	snap := m.query.Result()
	snap.IsFetching = snap.IsFetching || m.IsWaiting()
	return snap
}

func (m *Mutation[T]) Close() {
	if m.cancelFn != nil {
		m.cancelFn()
	}
}

func (m *Mutation[T]) submit(ctx context.Context, item T) (*T, error) {
	res, err := m.send(ctx, item)
	if err != nil {
		return m.handleResponse(nil, err)
	}
	return m.handleResponse(&res, nil)
}

// handleResponse — ошибка: откат черновика к данным сервера; создание: сброс к умолчаниям;
// обновление: черновик = ответ сервера.
func (m *Mutation[T]) handleResponse(res *T, err error) (*T, error) {
	var next lens.Tree
	if err == nil && !m.opts.isCreate {
		if t, convErr := lens.FromValue(*res); convErr == nil {
			next = t
		} else {
			err = apierr.Wrap(0, apierr.GenericMessage, convErr)
		}
	}
	var data lens.Tree
	if next == nil {
		data = m.serverTree()
	}

	m.mu.Lock()
	if next == nil {
		next = lens.Merge(data, m.opts.initial)
	}
	m.waiting = false
	m.draft = next
	m.mu.Unlock()

	if m.opts.onResponse != nil {
		if err != nil {
			m.opts.onResponse(nil, apierr.Message(err))
		} else {
			m.opts.onResponse(res, "")
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Mutation[T]) serverTree() lens.Tree {
	snap := m.query.Result()
	if snap.Data == nil {
		return nil
	}
	t, err := lens.FromValue(*snap.Data)
	if err != nil {
		return nil
	}
	return t
}

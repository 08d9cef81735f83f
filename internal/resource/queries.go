package resource

import (
	"context"
	"sync"

	"github.com/Gunvolt24/yote/pkg/querystring"
)

// Endpoint — путь запроса относительно ресурса ("logged-in" → "/logged-in?...").
// Нулевое значение — корневой эндпоинт; Undetermined — эндпоинт ещё не выбран, запрос не выполняется.
type Endpoint struct {
	path         string
	undetermined bool
}

var Undetermined = Endpoint{undetermined: true}

func At(path string) Endpoint { return Endpoint{path: path} }

// SingleQuery — общий контракт одиночных запросов (для мутаций).
type SingleQuery[T any] interface {
	Result() Snapshot[T]
	Subscribe(fn func()) (cancel func())
}

// watcher — подписки запроса: фокус и ключи стора.
type watcher struct {
	mu        sync.Mutex
	ctx       context.Context
	cancelKey func()
	cancelFoc func()
	closed    bool
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.cancelKey != nil {
		w.cancelKey()
		w.cancelKey = nil
	}
	if w.cancelFoc != nil {
		w.cancelFoc()
		w.cancelFoc = nil
	}
}

// ByIDQuery — запрос ресурса по id.
type ByIDQuery[T Identifiable] struct {
	svc   *Service[T]
	force bool
	w     watcher

	mu sync.RWMutex
	id string
}

// ByID — подписка на ресурс по id. Сразу выполняет Sync и перезапускает его при возврате фокуса.
// force — загрузка при каждом Sync, даже если данные уже есть.
func ByID[T Identifiable](ctx context.Context, svc *Service[T], id string, force bool) *ByIDQuery[T] {
	q := &ByIDQuery[T]{svc: svc, id: id, force: force}
	q.w.ctx = context.WithoutCancel(ctx)
	q.w.cancelFoc = svc.Focus().OnChange(func(focused bool) {
		if focused {
			q.Sync(q.w.ctx)
		}
	})
	q.Sync(ctx)
	return q
}

// ID — текущий id.
func (q *ByIDQuery[T]) ID() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.id
}

// SetID — смена id (аналог нового аргумента эффекта).
func (q *ByIDQuery[T]) SetID(ctx context.Context, id string) {
	q.mu.Lock()
	changed := q.id != id
	q.id = id
	q.mu.Unlock()
	if changed {
		q.Sync(ctx)
	}
}

// Sync — запустить загрузку, если есть id и потребитель в фокусе.
func (q *ByIDQuery[T]) Sync(ctx context.Context) {
	id := q.ID()
	if id == "" || !q.svc.Focus().Focused() {
		return
	}
	q.svc.Trigger(ctx, id, KindByID, q.force)
}

func (q *ByIDQuery[T]) Result() Snapshot[T] { return q.svc.Store().Single(q.ID()) }

func (q *ByIDQuery[T]) Invalidate() { q.svc.Invalidate(q.ID()) }

func (q *ByIDQuery[T]) Refetch(ctx context.Context) { q.svc.Refetch(ctx, q.ID(), KindByID) }

// Subscribe — fn вызывается при изменении записи текущего id.
func (q *ByIDQuery[T]) Subscribe(fn func()) (cancel func()) {
	return q.svc.Store().SubscribeAll(func(key string) {
		if key == q.ID() {
			fn()
		}
	})
}

func (q *ByIDQuery[T]) Close() { q.w.close() }

// OneQuery — один ресурс по фильтру (первый элемент списочного ответа).
type OneQuery[T Identifiable] struct {
	svc *Service[T]
	w   watcher

	mu       sync.RWMutex
	endpoint Endpoint
	args     querystring.Args
}

// One — подписка на ресурс по фильтру. args == nil — ошибка программиста (panic).
func One[T Identifiable](ctx context.Context, svc *Service[T], endpoint Endpoint, args querystring.Args) *OneQuery[T] {
	if args == nil {
		panic("resource.One requires args")
	}
	q := &OneQuery[T]{svc: svc, endpoint: endpoint, args: args.Clone()}
	q.w.ctx = context.WithoutCancel(ctx)
	q.w.cancelFoc = svc.Focus().OnChange(func(focused bool) {
		if focused {
			q.Sync(q.w.ctx)
		}
	})
	q.Sync(ctx)
	return q
}

// Key — ключ кэша: "/endpoint?qs" или "?qs".
func (q *OneQuery[T]) Key() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return querystring.Key(q.endpoint.path, q.args)
}

func (q *OneQuery[T]) ready() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.endpoint.undetermined && querystring.IsReady(q.args)
}

// SetArgs — смена фильтра или эндпоинта.
func (q *OneQuery[T]) SetArgs(ctx context.Context, endpoint Endpoint, args querystring.Args) {
	if args == nil {
		panic("resource.One requires args")
	}
	q.mu.Lock()
	q.endpoint = endpoint
	q.args = args.Clone()
	q.mu.Unlock()
	q.Sync(ctx)
}

// Sync — загрузка, когда аргументы готовы, эндпоинт известен и есть фокус.
func (q *OneQuery[T]) Sync(ctx context.Context) {
	if !q.ready() || !q.svc.Focus().Focused() {
		return
	}
	q.svc.Trigger(ctx, q.Key(), KindSingle, false)
}

// Result — снимок; версия для отката берётся по id найденного ресурса.
func (q *OneQuery[T]) Result() Snapshot[T] {
	snap := q.svc.Store().Single(q.Key())
	if snap.PreviousVersion == nil && snap.Data != nil {
		snap.PreviousVersion = q.svc.Store().PreviousVersion((*snap.Data).ResourceID())
	}
	return snap
}

func (q *OneQuery[T]) Invalidate() { q.svc.Invalidate(q.Key()) }

func (q *OneQuery[T]) Refetch(ctx context.Context) { q.svc.Refetch(ctx, q.Key(), KindSingle) }

func (q *OneQuery[T]) Subscribe(fn func()) (cancel func()) {
	return q.svc.Store().SubscribeAll(func(key string) {
		if key == q.Key() {
			fn()
		}
	})
}

func (q *OneQuery[T]) Close() { q.w.close() }

// Pagination — параметры страницы и итоги списка.
type Pagination struct {
	Page       int
	Per        int
	TotalPages int
	TotalCount int
}

// ListResult — снимок списка вместе с пагинацией.
type ListResult[T any] struct {
	ListSnapshot[T]
	Pagination Pagination
}

// ListQuery — список по фильтру с пагинацией и предзагрузкой следующей страницы.
type ListQuery[T Identifiable] struct {
	svc *Service[T]
	w   watcher

	mu       sync.RWMutex
	endpoint Endpoint
	args     querystring.Args
}

// List — подписка на список. Если страница не последняя, следующая загружается заранее.
func List[T Identifiable](ctx context.Context, svc *Service[T], endpoint Endpoint, args querystring.Args) *ListQuery[T] {
	q := &ListQuery[T]{svc: svc, endpoint: endpoint, args: args.Clone()}
	q.w.ctx = context.WithoutCancel(ctx)
	q.w.cancelFoc = svc.Focus().OnChange(func(focused bool) {
		if focused {
			q.Sync(q.w.ctx)
		}
	})
	// totalPages известен только после ответа: предзагрузка проверяется на каждое изменение записи
	q.w.cancelKey = svc.Store().SubscribeAll(func(key string) {
		if key == q.Key() {
			q.prefetch(q.w.ctx)
		}
	})
	q.Sync(ctx)
	return q
}

func (q *ListQuery[T]) Key() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return querystring.Key(q.endpoint.path, q.args)
}

func (q *ListQuery[T]) ready() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.endpoint.undetermined && querystring.IsReady(q.args)
}

func (q *ListQuery[T]) SetArgs(ctx context.Context, endpoint Endpoint, args querystring.Args) {
	q.mu.Lock()
	q.endpoint = endpoint
	q.args = args.Clone()
	q.mu.Unlock()
	q.Sync(ctx)
}

// Sync — загрузка текущей страницы (при готовности и фокусе) и предзагрузка следующей.
func (q *ListQuery[T]) Sync(ctx context.Context) {
	if q.ready() && q.svc.Focus().Focused() {
		q.svc.Trigger(ctx, q.Key(), KindList, false)
	}
	q.prefetch(ctx)
}

// NextKey — ключ следующей страницы или "" на последней / без пагинации.
func (q *ListQuery[T]) NextKey() string {
	if !q.ready() {
		return ""
	}
	q.mu.RLock()
	endpoint, args := q.endpoint, q.args
	q.mu.RUnlock()

	page, per, ok := querystring.Page(args)
	if !ok {
		return ""
	}
	totalPages := q.svc.Store().List(querystring.Key(endpoint.path, args)).TotalPages
	if page >= totalPages {
		return ""
	}
	next := querystring.WithPage(args, page+1)
	next["per"] = per
	return querystring.Key(endpoint.path, next)
}

func (q *ListQuery[T]) prefetch(ctx context.Context) {
	q.w.mu.Lock()
	closed := q.w.closed
	q.w.mu.Unlock()
	if closed {
		return
	}
	if next := q.NextKey(); next != "" {
		q.svc.Trigger(ctx, next, KindList, false)
	}
}

func (q *ListQuery[T]) Result() ListResult[T] {
	snap := q.svc.Store().List(q.Key())
	res := ListResult[T]{ListSnapshot: snap}
	q.mu.RLock()
	if page, per, ok := querystring.Page(q.args); ok {
		res.Pagination.Page, res.Pagination.Per = page, per
	}
	q.mu.RUnlock()
	res.Pagination.TotalPages = snap.TotalPages
	res.Pagination.TotalCount = snap.TotalCount
	if res.OtherData == nil {
		res.OtherData = map[string]any{}
	}
	return res
}

func (q *ListQuery[T]) Invalidate() { q.svc.Invalidate(q.Key()) }

func (q *ListQuery[T]) Refetch(ctx context.Context) { q.svc.Refetch(ctx, q.Key(), KindList) }

// AddIDsToList — оптимистично дописать ids в текущий список.
func (q *ListQuery[T]) AddIDsToList(ids ...string) { q.svc.Store().AddIDs(q.Key(), ids...) }

// RemoveIDsFromList — оптимистично убрать ids из текущего списка.
func (q *ListQuery[T]) RemoveIDsFromList(ids ...string) { q.svc.Store().RemoveIDs(q.Key(), ids...) }

func (q *ListQuery[T]) Subscribe(fn func()) (cancel func()) {
	return q.svc.Store().SubscribeAll(func(key string) {
		if key == q.Key() {
			fn()
		}
	})
}

func (q *ListQuery[T]) Close() { q.w.close() }

// Пакет resource — клиентский кэш ресурсов: нормализованное хранилище по id,
// записи запросов по ключу (id или строка запроса) и машина статусов загрузки.
package resource

import (
	"slices"
	"sync"
	"time"

	"github.com/Gunvolt24/yote/pkg/metrics"
)

// Identifiable — ресурс с идентификатором.
type Identifiable interface {
	ResourceID() string
}

// Status — состояние записи запроса.
type Status uint8

const (
	StatusUntried Status = iota
	StatusPending
	StatusFulfilled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "untried"
	}
}

// Flags — производные признаки записи.
type Flags struct {
	IsFetching bool
	IsLoading  bool
	IsError    bool
	IsSuccess  bool
	IsEmpty    bool
}

func flagsFor(status Status, hasData, empty bool) Flags {
	f := Flags{
		IsFetching: status == StatusPending || status == StatusUntried,
		IsError:    status == StatusRejected,
		IsSuccess:  status == StatusFulfilled,
	}
	f.IsLoading = f.IsFetching && !hasData
	f.IsEmpty = f.IsSuccess && empty
	return f
}

// ListPage — ответ списочного эндпоинта.
type ListPage[T any] struct {
	Items      []T
	TotalPages *int
	TotalCount *int
	OtherData  map[string]any
}

// Snapshot — одиночная запись и ресурс, на который она указывает.
type Snapshot[T any] struct {
	Key             string
	Status          Status
	Data            *T
	Err             error
	PreviousVersion *T
	FailedMutation  *T
	OtherData       map[string]any
	ReceivedAt      time.Time
	Flags
}

// ListSnapshot — списочная запись; Data собрана из byID в порядке ids.
// Data == nil, пока список ни разу не загружался.
type ListSnapshot[T any] struct {
	Key        string
	Status     Status
	IDs        []string
	Data       []T
	Err        error
	TotalPages int
	TotalCount int
	OtherData  map[string]any
	ReceivedAt time.Time
	Flags
}

type entry[T any] struct {
	status     Status
	ids        []string
	hasIDs     bool
	err        error
	previous   *T
	failed     *T
	totalPages *int
	totalCount *int
	otherData  map[string]any
	receivedAt time.Time
}

// Store — кэш одного вида ресурсов.
// Создаётся пустым через NewStore; освобождения не требует.
type Store[T Identifiable] struct {
	name string

	mu      sync.RWMutex
	byID    map[string]T
	queries map[string]*entry[T]

	subMu   sync.Mutex
	nextSub uint64
	subs    map[string]map[uint64]func(string)
	allSubs map[uint64]func(string)

	now func() time.Time
}

func NewStore[T Identifiable](name string) *Store[T] {
	return &Store[T]{
		name:    name,
		byID:    make(map[string]T),
		queries: make(map[string]*entry[T]),
		subs:    make(map[string]map[uint64]func(string)),
		allSubs: make(map[uint64]func(string)),
		now:     time.Now,
	}
}

// Name — имя вида ресурсов (метки метрик, логи).
func (s *Store[T]) Name() string { return s.name }

// Begin — шлюз fetch-if-needed.
// untried/rejected → pending и true; pending/fulfilled → false (дедупликация по ключу).
// force переводит в pending из любого состояния.
func (s *Store[T]) Begin(key string, force bool) bool {
	s.mu.Lock()
	e := s.entryLocked(key)
	if !force && (e.status == StatusPending || e.status == StatusFulfilled) {
		s.mu.Unlock()
		s.count("dedup")
		return false
	}
	e.status = StatusPending
	e.err = nil
	s.mu.Unlock()

	s.count("begin")
	s.notify(key)
	return true
}

// ResolveSingle — pending → fulfilled для одиночной записи.
// item == nil означает «ничего не найдено» (IsEmpty).
// Ответ для записи не в pending (например, после Reset) отбрасывается.
func (s *Store[T]) ResolveSingle(key string, item *T) {
	s.mu.Lock()
	e, ok := s.queries[key]
	if !ok || e.status != StatusPending {
		s.mu.Unlock()
		return
	}
	e.status = StatusFulfilled
	e.err = nil
	e.receivedAt = s.now()
	e.hasIDs = true
	e.ids = nil
	touched := []string{key}
	if item != nil {
		id := (*item).ResourceID()
		if id == "" {
			id = key
		}
		s.byID[id] = *item
		e.ids = []string{id}
		if id != key {
			touched = append(touched, id)
		}
		touched = append(touched, s.listsWithLocked(id)...)
	}
	s.mu.Unlock()

	s.count("fulfilled")
	s.notify(touched...)
}

// ResolveList — pending → fulfilled для списка.
// Последовательность ids заменяется целиком, ресурсы сливаются в byID (последняя запись побеждает).
func (s *Store[T]) ResolveList(key string, page ListPage[T]) {
	s.mu.Lock()
	e, ok := s.queries[key]
	if !ok || e.status != StatusPending {
		s.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(page.Items))
	touched := []string{key}
	for _, item := range page.Items {
		id := item.ResourceID()
		s.byID[id] = item
		ids = append(ids, id)
		touched = append(touched, id)
	}
	e.status = StatusFulfilled
	e.err = nil
	e.ids = ids
	e.hasIDs = true
	e.totalPages = page.TotalPages
	e.totalCount = page.TotalCount
	e.otherData = page.OtherData
	e.receivedAt = s.now()
	s.mu.Unlock()

	s.count("fulfilled")
	s.notify(touched...)
}

// Reject — pending → rejected; прежние данные остаются.
func (s *Store[T]) Reject(key string, err error) {
	s.mu.Lock()
	e, ok := s.queries[key]
	if !ok || e.status != StatusPending {
		s.mu.Unlock()
		return
	}
	e.status = StatusRejected
	e.err = err
	s.mu.Unlock()

	s.count("rejected")
	s.notify(key)
}

// Invalidate — fulfilled/rejected → untried; данные сохраняются как устаревшие.
// Следующий Begin по ключу снова пропустит запрос.
func (s *Store[T]) Invalidate(keys ...string) {
	var touched []string
	s.mu.Lock()
	for _, key := range keys {
		e, ok := s.queries[key]
		if !ok || (e.status != StatusFulfilled && e.status != StatusRejected) {
			continue
		}
		e.status = StatusUntried
		touched = append(touched, key)
	}
	s.mu.Unlock()

	if len(touched) > 0 {
		s.count("invalidated")
		s.notify(touched...)
	}
}

// InvalidateAll — все завершённые записи становятся устаревшими.
func (s *Store[T]) InvalidateAll() {
	s.mu.RLock()
	keys := make([]string, 0, len(s.queries))
	for k := range s.queries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	s.Invalidate(keys...)
}

// Upsert — результат успешной мутации.
// Прежняя версия ресурса запоминается для отката на один шаг.
// Списки, содержащие id, не перезапрашиваются.
func (s *Store[T]) Upsert(item T) {
	id := item.ResourceID()

	s.mu.Lock()
	e := s.entryLocked(id)
	if prev, ok := s.byID[id]; ok {
		p := prev
		e.previous = &p
	}
	s.byID[id] = item
	e.failed = nil
	if e.status != StatusPending {
		e.status = StatusFulfilled
		e.err = nil
		e.receivedAt = s.now()
	}
	e.ids = []string{id}
	e.hasIDs = true
	touched := append([]string{id}, s.listsWithLocked(id)...)
	s.mu.Unlock()

	s.count("mutated")
	s.notify(touched...)
}

// RecordFailure — последняя отвергнутая мутация ресурса.
func (s *Store[T]) RecordFailure(id string, payload T) {
	s.mu.Lock()
	e := s.entryLocked(id)
	p := payload
	e.failed = &p
	s.mu.Unlock()

	s.notify(id)
}

// Remove — удаление ресурса из byID и из всех списков.
// Запись по id остаётся fulfilled без данных (IsEmpty).
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	touched := append([]string{id}, s.listsWithLocked(id)...)
	delete(s.byID, id)
	for _, key := range touched[1:] {
		e := s.queries[key]
		e.ids = slices.DeleteFunc(slices.Clone(e.ids), func(v string) bool { return v == id })
	}
	e := s.entryLocked(id)
	e.status = StatusFulfilled
	e.err = nil
	e.ids = nil
	e.hasIDs = true
	e.receivedAt = s.now()
	s.mu.Unlock()

	s.count("removed")
	s.notify(touched...)
}

// AddIDs — дописать ids в конец списка (без повторов).
func (s *Store[T]) AddIDs(key string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	e := s.entryLocked(key)
	next := slices.Clone(e.ids)
	for _, id := range ids {
		if id != "" && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	e.ids = next
	e.hasIDs = true
	s.mu.Unlock()

	s.notify(key)
}

// RemoveIDs — убрать ids из списка.
func (s *Store[T]) RemoveIDs(key string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	e, ok := s.queries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.ids = slices.DeleteFunc(slices.Clone(e.ids), func(v string) bool { return slices.Contains(ids, v) })
	s.mu.Unlock()

	s.notify(key)
}

// Get — ресурс по id из byID.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	return v, ok
}

// PreviousVersion — версия ресурса до последней мутации.
func (s *Store[T]) PreviousVersion(id string) *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.queries[id]; ok && e.previous != nil {
		p := *e.previous
		return &p
	}
	return nil
}

// Single — снимок одиночной записи.
// Ключ по id читает byID напрямую, даже если запись ещё не загружалась.
func (s *Store[T]) Single(key string) Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[T]{Key: key}
	id := key
	e, ok := s.queries[key]
	if ok {
		snap.Status = e.status
		snap.Err = e.err
		snap.OtherData = e.otherData
		snap.ReceivedAt = e.receivedAt
		if e.previous != nil {
			p := *e.previous
			snap.PreviousVersion = &p
		}
		if e.failed != nil {
			f := *e.failed
			snap.FailedMutation = &f
		}
		if e.hasIDs {
			id = ""
			if len(e.ids) > 0 {
				id = e.ids[0]
			}
		}
	}
	if v, found := s.byID[id]; found && id != "" {
		snap.Data = &v
	}
	snap.Flags = flagsFor(snap.Status, snap.Data != nil, snap.Data == nil)
	return snap
}

// List — снимок списочной записи.
func (s *Store[T]) List(key string) ListSnapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := ListSnapshot[T]{Key: key}
	e, ok := s.queries[key]
	if ok {
		snap.Status = e.status
		snap.Err = e.err
		snap.OtherData = e.otherData
		snap.ReceivedAt = e.receivedAt
		if e.totalPages != nil {
			snap.TotalPages = *e.totalPages
		}
		if e.totalCount != nil {
			snap.TotalCount = *e.totalCount
		}
		if e.hasIDs {
			snap.IDs = slices.Clone(e.ids)
			snap.Data = make([]T, 0, len(e.ids))
			for _, id := range e.ids {
				if v, found := s.byID[id]; found {
					snap.Data = append(snap.Data, v)
				}
			}
		}
	}
	snap.Flags = flagsFor(snap.Status, snap.Data != nil, len(snap.Data) == 0)
	return snap
}

// Subscribe — наблюдатель за ключом; fn вызывается после каждого изменения записи
// или ресурса, на который она ссылается. Возвращает отписку.
func (s *Store[T]) Subscribe(key string, fn func(key string)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]func(string))
	}
	s.subs[key][id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[key], id)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

// SubscribeAll — наблюдатель за любыми изменениями.
func (s *Store[T]) SubscribeAll(fn func(key string)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.allSubs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.allSubs, id)
	}
}

// Reset — сброс всех данных (истёкшая сессия). Подписчики получают уведомление.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.queries)+len(s.byID))
	for k := range s.queries {
		keys = append(keys, k)
	}
	for k := range s.byID {
		if _, ok := s.queries[k]; !ok {
			keys = append(keys, k)
		}
	}
	s.byID = make(map[string]T)
	s.queries = make(map[string]*entry[T])
	s.mu.Unlock()

	s.count("reset")
	s.notify(keys...)
}

func (s *Store[T]) entryLocked(key string) *entry[T] {
	e, ok := s.queries[key]
	if !ok {
		e = &entry[T]{}
		s.queries[key] = e
	}
	return e
}

// listsWithLocked — ключи списков, в которых встречается id.
func (s *Store[T]) listsWithLocked(id string) []string {
	var keys []string
	for k, e := range s.queries {
		if k != id && slices.Contains(e.ids, id) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Store[T]) notify(keys ...string) {
	s.subMu.Lock()
	var calls []func()
	for _, key := range keys {
		for _, fn := range s.subs[key] {
			calls = append(calls, func() { fn(key) })
		}
		for _, fn := range s.allSubs {
			calls = append(calls, func() { fn(key) })
		}
	}
	s.subMu.Unlock()

	for _, call := range calls {
		call()
	}
}

func (s *Store[T]) count(op string) {
	metrics.ResourceCacheOps.WithLabelValues(s.name, op).Inc()
}

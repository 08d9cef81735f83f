package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/metrics"
)

const defaultMaxInFlight = 8

// Kind — вид запроса за ресурсом.
type Kind uint8

const (
	KindByID Kind = iota
	KindSingle
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	default:
		return "id"
	}
}

// Fetcher — транспорт ресурса.
// FetchSingle и FetchList получают ключ кэша вида "/endpoint?qs" или "?qs".
type Fetcher[T any] interface {
	FetchByID(ctx context.Context, id string) (*T, error)
	FetchSingle(ctx context.Context, key string) (*T, error)
	FetchList(ctx context.Context, key string) (ListPage[T], error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Service — кэш-сервис ресурса: решает, когда идти в сеть, и пишет ответы в Store.
// Ошибки загрузки оседают в записи и наружу не возвращаются.
type Service[T Identifiable] struct {
	store   *Store[T]
	fetcher Fetcher[T]
	log     ports.Logger

	sem              *semaphore.Weighted
	focus            Focus
	onSessionExpired func()

	wg sync.WaitGroup
}

type Option func(*options)

type options struct {
	maxInFlight      int64
	focus            Focus
	onSessionExpired func()
}

// WithMaxInFlight — предел одновременных запросов сервиса.
func WithMaxInFlight(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// WithFocus — источник признака «экран в фокусе».
func WithFocus(f Focus) Option {
	return func(o *options) {
		if f != nil {
			o.focus = f
		}
	}
}

// WithSessionExpired — реакция на 401 (обычно Registry.Reset).
func WithSessionExpired(fn func()) Option {
	return func(o *options) { o.onSessionExpired = fn }
}

func NewService[T Identifiable](store *Store[T], fetcher Fetcher[T], log ports.Logger, opts ...Option) *Service[T] {
	o := options{maxInFlight: defaultMaxInFlight, focus: AlwaysFocused{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service[T]{
		store:            store,
		fetcher:          fetcher,
		log:              log,
		sem:              semaphore.NewWeighted(o.maxInFlight),
		focus:            o.focus,
		onSessionExpired: o.onSessionExpired,
	}
}

func (s *Service[T]) Store() *Store[T] { return s.store }
func (s *Service[T]) Focus() Focus     { return s.focus }

// Trigger — fetch-if-needed без ожидания результата.
// false — запрос не нужен (уже pending или fulfilled).
// Отмена ctx вызывающего не прерывает запрос: наблюдатель просто перестаёт читать запись.
func (s *Service[T]) Trigger(ctx context.Context, key string, kind Kind, force bool) bool {
	if !s.store.Begin(key, force) {
		return false
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetch(ctx, key, kind)
	}()
	return true
}

// Fetch — синхронный вариант Trigger; возвращает ошибку загрузки.
func (s *Service[T]) Fetch(ctx context.Context, key string, kind Kind, force bool) error {
	if !s.store.Begin(key, force) {
		return nil
	}
	return s.fetch(ctx, key, kind)
}

// Wait — дождаться всех запущенных Trigger.
func (s *Service[T]) Wait() { s.wg.Wait() }

// Invalidate — пометить записи устаревшими.
func (s *Service[T]) Invalidate(keys ...string) { s.store.Invalidate(keys...) }

// Refetch — invalidate + trigger.
func (s *Service[T]) Refetch(ctx context.Context, key string, kind Kind) bool {
	s.store.Invalidate(key)
	return s.Trigger(ctx, key, kind, false)
}

func (s *Service[T]) fetch(ctx context.Context, key string, kind Kind) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.store.Reject(key, err)
		return err
	}
	defer s.sem.Release(1)

	start := time.Now()
	var err error
	switch kind {
	case KindList:
		var page ListPage[T]
		if page, err = s.fetcher.FetchList(ctx, key); err == nil {
			s.store.ResolveList(key, page)
		}
	case KindSingle:
		var item *T
		if item, err = s.fetcher.FetchSingle(ctx, key); err == nil {
			s.store.ResolveSingle(key, item)
		}
	default:
		var item *T
		if item, err = s.fetcher.FetchByID(ctx, key); err == nil {
			s.store.ResolveSingle(key, item)
		}
	}
	metrics.ResourceFetchDuration.WithLabelValues(s.store.Name(), kind.String()).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	// «записи нет» (CodeNotFound) для одиночных записей — пустой результат;
	// прочие 404 остаются ошибкой и перезапрашиваются
	if kind != KindList && apierr.IsNotFound(err) {
		s.store.ResolveSingle(key, nil)
		return nil
	}
	s.log.Warnf(ctx, "resource %s: fetch %s %q failed: %v", s.store.Name(), kind, key, err)
	s.store.Reject(key, normalize(err))
	s.handleSessionExpired(err)
	return err
}

// Create — создание; ответ сервера пишется в byID. Списки не трогаются.
func (s *Service[T]) Create(ctx context.Context, item T) (T, error) {
	created, err := s.fetcher.Create(ctx, item)
	if err != nil {
		s.log.Warnf(ctx, "resource %s: create failed: %v", s.store.Name(), err)
		s.handleSessionExpired(err)
		var zero T
		return zero, normalize(err)
	}
	s.store.Upsert(created)
	return created, nil
}

// Update — обновление; прежняя версия остаётся для отката.
func (s *Service[T]) Update(ctx context.Context, item T) (T, error) {
	updated, err := s.fetcher.Update(ctx, item)
	if err != nil {
		s.log.Warnf(ctx, "resource %s: update %q failed: %v", s.store.Name(), item.ResourceID(), err)
		s.store.RecordFailure(item.ResourceID(), item)
		s.handleSessionExpired(err)
		var zero T
		return zero, normalize(err)
	}
	s.store.Upsert(updated)
	return updated, nil
}

// Delete — удаление; id пропадает из byID и из всех списков.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if err := s.fetcher.Delete(ctx, id); err != nil {
		s.log.Warnf(ctx, "resource %s: delete %q failed: %v", s.store.Name(), id, err)
		s.handleSessionExpired(err)
		return normalize(err)
	}
	s.store.Remove(id)
	return nil
}

func (s *Service[T]) handleSessionExpired(err error) {
	if errors.Is(err, apierr.ErrSessionExpired) && s.onSessionExpired != nil {
		s.onSessionExpired()
	}
}

// normalize — нетипизированные ошибки транспорта сворачиваются в общее сообщение.
func normalize(err error) error {
	var e *apierr.Error
	if errors.As(err, &e) || errors.Is(err, apierr.ErrSessionExpired) {
		return err
	}
	return apierr.Wrap(0, apierr.GenericMessage, err)
}

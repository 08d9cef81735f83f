package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/apierr"
)

var _ ports.ProductService = (*ProductService)(nil)

// RequiredParam — единственное допустимое значение для CreateWithRequiredParam.
const RequiredParam = "super-fancy"

// Сообщения об ошибках, которые видит клиент.
const (
	msgFindError    = "Error finding Product"
	msgNotFound     = "Could not find a matching Product"
	msgNoMatch      = "Could not find matching Product"
	msgCreateError  = "Error creating Product"
	msgUpdateError  = "Could not update Product"
	msgDeleteError  = "There was a problem deleting this Product"
	msgMissingParam = "Missing requiredParam"
	msgInvalidParam = "Invalid requiredParam"
	msgBadPayload   = "Invalid Product payload"
	msgUnauthorized = "Unauthorized"
)

// ProductService — прикладная логика работы с товарами (без знаний о транспорте).
type ProductService struct {
	repo      ports.ProductRepository
	cache     ports.ProductCache
	log       ports.Logger
	validator ports.ProductValidator
	events    ports.EventPublisher

	now   func() time.Time
	newID func() string
}

// NewProductService — DI-конструктор.
func NewProductService(
	repo ports.ProductRepository,
	cache ports.ProductCache,
	log ports.Logger,
	validator ports.ProductValidator,
	events ports.EventPublisher,
) *ProductService {
	return &ProductService{
		repo:      repo,
		cache:     cache,
		log:       log,
		validator: validator,
		events:    events,
		// точность Postgres — микросекунды
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.NewString,
	}
}

// GetProduct — сначала из кэша, при промахе — из БД с записью в кэш.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if product, found := s.cache.Get(ctx, id); found {
		s.log.Infof(ctx, "cache hit for product=%s", id)
		return product, nil
	}
	s.log.Infof(ctx, "cache miss for product=%s", id)

	start := time.Now()
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		s.log.Errorf(ctx, "repo.Get failed id=%s err=%v", id, err)
		return nil, apierr.QueryFailed(msgFindError, err)
	}
	if product == nil {
		return nil, apierr.NotFound(msgNotFound)
	}

	if setErr := s.cache.Set(ctx, product); setErr != nil {
		s.log.Warnf(ctx, "cache.Set failed id=%s err=%v", id, setErr)
	}
	s.log.Infof(ctx, "db fetch product=%s took=%s", id, time.Since(start))
	return product, nil
}

// DefaultProduct — заготовка для формы создания.
func (s *ProductService) DefaultProduct(_ context.Context) (*domain.Product, error) {
	return domain.DefaultProduct(), nil
}

// ListProducts — проксирование в репозиторий (запрос уже разобран транспортом).
func (s *ProductService) ListProducts(ctx context.Context, q listquery.Query) (domain.ProductPage, error) {
	return s.repo.List(ctx, q)
}

// ListMyProducts — то же, но только товары автора principal.
func (s *ProductService) ListMyProducts(ctx context.Context, q listquery.Query, principal string) (domain.ProductPage, error) {
	if principal == "" {
		return domain.ProductPage{}, apierr.New(http.StatusUnauthorized, msgUnauthorized)
	}
	return s.repo.List(ctx, q.ScopedTo(principal))
}

// CreateProduct — новый товар от имени principal. Пустой id назначается сервером.
func (s *ProductService) CreateProduct(ctx context.Context, product *domain.Product, principal string) (*domain.Product, error) {
	if product == nil {
		return nil, apierr.BadRequest(msgBadPayload)
	}
	p := product.Clone()
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	if p.Meta == nil {
		p.Meta = map[string]any{}
	}
	p.CreatedBy = principal
	p.Created = s.now()
	p.Updated = p.Created

	if err := s.validator.Validate(ctx, p); err != nil {
		s.log.Warnf(ctx, "validation failed id=%s err=%v", p.ID, err)
		return nil, apierr.Wrap(http.StatusNotFound, msgCreateError, err)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Errorf(ctx, "repo.Create failed id=%s err=%v", p.ID, err)
		return nil, keepTyped(err, msgCreateError)
	}

	s.remember(ctx, p)
	s.publish(ctx, domain.EventCreated, p, principal)
	s.log.Infof(ctx, "product created id=%s by=%s", p.ID, principal)
	return p, nil
}

// CreateWithRequiredParam — создание через custom-эндпоинт с обязательным параметром.
func (s *ProductService) CreateWithRequiredParam(ctx context.Context, param string, product *domain.Product, principal string) (*domain.Product, error) {
	if param == "" {
		return nil, apierr.New(http.StatusNotFound, msgMissingParam)
	}
	if param != RequiredParam {
		return nil, apierr.New(http.StatusNotFound, msgInvalidParam)
	}
	return s.CreateProduct(ctx, product, principal)
}

// UpdateProduct — наложение патча на сохранённую запись.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	return s.update(ctx, id, patch, "", func(ctx context.Context) (*domain.Product, error) {
		return s.repo.Get(ctx, id)
	})
}

// UpdateMyProduct — то же, но только для товара автора principal.
func (s *ProductService) UpdateMyProduct(ctx context.Context, id string, patch domain.ProductPatch, principal string) (*domain.Product, error) {
	if principal == "" {
		return nil, apierr.New(http.StatusUnauthorized, msgUnauthorized)
	}
	return s.update(ctx, id, patch, principal, func(ctx context.Context) (*domain.Product, error) {
		return s.repo.GetOwned(ctx, id, principal)
	})
}

func (s *ProductService) update(
	ctx context.Context,
	id string,
	patch domain.ProductPatch,
	principal string,
	load func(context.Context) (*domain.Product, error),
) (*domain.Product, error) {
	old, err := load(ctx)
	if err != nil {
		s.log.Errorf(ctx, "load for update failed id=%s err=%v", id, err)
		return nil, apierr.QueryFailed(msgFindError, err)
	}
	if old == nil {
		return nil, apierr.NotFound(msgNoMatch)
	}

	p := old.Clone()
	patch.Apply(p)
	p.Updated = s.now()

	if err := s.validator.Validate(ctx, p); err != nil {
		s.log.Warnf(ctx, "validation failed id=%s err=%v", id, err)
		return nil, apierr.Wrap(http.StatusNotFound, msgUpdateError, err)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apierr.NotFound(msgNoMatch)
		}
		s.log.Errorf(ctx, "repo.Update failed id=%s err=%v", id, err)
		return nil, keepTyped(err, msgUpdateError)
	}

	s.remember(ctx, p)
	s.publish(ctx, domain.EventUpdated, p, principal)
	return p, nil
}

// DeleteProduct — удаление; возвращает удалённую запись.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*domain.Product, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.log.Errorf(ctx, "repo.Delete failed id=%s err=%v", id, err)
		return nil, apierr.QueryFailed(msgDeleteError, err)
	}
	if deleted == nil {
		return nil, apierr.NotFound(msgNoMatch)
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warnf(ctx, "cache.Delete failed id=%s err=%v", id, err)
	}
	s.publish(ctx, domain.EventDeleted, deleted, "")
	return deleted, nil
}

// ApplyEvent — событие из Kafka: обновить или выкинуть запись кэша.
// Битое событие — domain.ErrInvalidEvent, невалидный товар — validate.ErrInvalidProduct
// (оба пропускаются консьюмером); ошибки кэша возвращаются для повтора.
func (s *ProductService) ApplyEvent(ctx context.Context, raw []byte) error {
	var ev domain.ProductEvent
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&ev); err != nil {
		s.log.Warnf(ctx, "invalid event json err=%v", err)
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidEvent, err)
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return fmt.Errorf("%w: invalid json: trailing data", domain.ErrInvalidEvent)
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	switch ev.Type {
	case domain.EventDeleted:
		if err := s.cache.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("cache delete %s: %w", ev.ID, err)
		}
	default:
		if err := s.validator.Validate(ctx, ev.Product); err != nil {
			return fmt.Errorf("event %s/%s: %w", ev.Type, ev.ID, err)
		}
		// запоздавшее событие не должно затирать более свежую запись
		if cached, ok := s.cache.Get(ctx, ev.ID); ok && cached.Updated.After(ev.Product.Updated) {
			s.log.Infof(ctx, "stale event skipped id=%s", ev.ID)
			return nil
		}
		if err := s.cache.Set(ctx, ev.Product); err != nil {
			return fmt.Errorf("cache set %s: %w", ev.ID, err)
		}
	}
	s.log.Infof(ctx, "event applied type=%s id=%s", ev.Type, ev.ID)
	return nil
}

// WarmUpCache — прогрев кэша последними N товарами из БД.
// Если n <= 0, прогрев не выполняется (но это не ошибка).
func (s *ProductService) WarmUpCache(ctx context.Context, n int) error {
	if n <= 0 {
		s.log.Warnf(ctx, "cache warm-up skipped: n <= 0 (n=%d)", n)
		return nil
	}

	start := time.Now()
	list, err := s.repo.LastN(ctx, n)
	if err != nil {
		s.log.Errorf(ctx, "repo.LastN failed n=%d err=%v", n, err)
		return err
	}
	if warmUpErr := s.cache.WarmUp(ctx, list); warmUpErr != nil {
		s.log.Warnf(ctx, "cache.WarmUp failed err=%v", warmUpErr)
	}
	s.log.Infof(ctx, "cache warmed with %d products in %s", len(list), time.Since(start))
	return nil
}

func (s *ProductService) remember(ctx context.Context, p *domain.Product) {
	if err := s.cache.Set(ctx, p); err != nil {
		s.log.Warnf(ctx, "cache.Set failed id=%s err=%v", p.ID, err)
	}
}

// publish — событие для остальных реплик; сбой публикации не отменяет записанное изменение.
func (s *ProductService) publish(ctx context.Context, typ domain.EventType, p *domain.Product, principal string) {
	ev := domain.ProductEvent{Type: typ, ID: p.ID, Principal: principal, At: s.now()}
	if typ != domain.EventDeleted {
		ev.Product = p
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warnf(ctx, "publish %s event failed id=%s err=%v", typ, p.ID, err)
	}
}

// keepTyped — типизированные ошибки хранилища (409/400) отдаются как есть, прочие — с сообщением msg.
func keepTyped(err error, msg string) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierr.Wrap(http.StatusNotFound, msg, err)
}

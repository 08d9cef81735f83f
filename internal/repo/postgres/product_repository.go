package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/metrics"
)

// Проверка, что ProductRepository удовлетворяет интерфейсу ProductRepository.
var _ ports.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, title, description, featured, status, meta, created_by, created_at, updated_at`

// ProductFields — белый список полей для фильтров и сортировки списков.
var ProductFields = domain.ProductListFields

// ProductRepository — реализация репозитория товаров на Postgres (pgxpool).
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository — конструктор ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Get — товар по id. Если не нашли, возвращает (nil, nil).
func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// GetOwned — товар по id, только если его создал createdBy.
func (r *ProductRepository) GetOwned(ctx context.Context, id, createdBy string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND created_by = $2`, id, createdBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select owned product: %w", err)
	}
	return p, nil
}

// Create — вставка нового товара. Дубликат id — 409.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return errors.New("product is empty or id is required")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Title, p.Description, p.Featured, p.Status, metaOrEmpty(p.Meta), p.CreatedBy, p.Created, p.Updated)
	if err != nil {
		return translate(fmt.Errorf("insert product: %w", err))
	}
	return nil
}

// Update — полная перезапись изменяемых полей; created/created_by не трогаются.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if p == nil || p.ID == "" {
		return errors.New("product is empty or id is required")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET
			title = $2,
			description = $3,
			featured = $4,
			status = $5,
			meta = $6,
			updated_at = $7
		WHERE id = $1
	`, p.ID, p.Title, p.Description, p.Featured, p.Status, metaOrEmpty(p.Meta), p.Updated)
	if err != nil {
		return translate(fmt.Errorf("update product: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete — удаляет товар и возвращает удалённую запись; (nil, nil), если записи не было.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}

// List — выборка по разобранному запросу.
// С пагинацией: skip/take + отдельный count для totalCount/totalPages.
// Без пагинации: жёсткий лимит. Ошибки хранилища — apierr.QueryFailed.
func (r *ProductRepository) List(ctx context.Context, q listquery.Query) (domain.ProductPage, error) {
	where, args, err := buildWhere(q)
	if err != nil {
		return domain.ProductPage{}, err
	}
	order, err := buildOrder(q.Sort)
	if err != nil {
		return domain.ProductPage{}, err
	}

	page := domain.ProductPage{Items: []domain.Product{}}
	if q.Paginated() {
		metrics.ListQueries.WithLabelValues("products", "paginated").Inc()
		var count int
		if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&count); err != nil {
			return domain.ProductPage{}, apierr.QueryFailed("There was a problem finding Product list", fmt.Errorf("count products: %w", err))
		}
		totalPages := q.TotalPages(count)
		page.TotalCount, page.TotalPages = &count, &totalPages
	} else {
		metrics.ListQueries.WithLabelValues("products", "limited").Inc()
	}

	n := len(args)
	sql := `SELECT ` + productColumns + ` FROM products` + where + order +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, q.Take(), q.Skip())

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return domain.ProductPage{}, apierr.QueryFailed("There was a problem finding Product list", fmt.Errorf("select products: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return domain.ProductPage{}, apierr.QueryFailed("There was a problem finding Product list", fmt.Errorf("scan product: %w", err))
		}
		page.Items = append(page.Items, *p)
	}
	if err := rows.Err(); err != nil {
		return domain.ProductPage{}, apierr.QueryFailed("There was a problem finding Product list", fmt.Errorf("products rows: %w", err))
	}
	return page, nil
}

// LastN — последние N товаров (для прогрева кэша).
func (r *ProductRepository) LastN(ctx context.Context, n int) ([]*domain.Product, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("select last products: %w", err)
	}
	defer rows.Close()

	var result []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("last rows: %w", err)
	}
	return result, nil
}

// buildWhere — условия фильтра: "col = ANY($n)" на каждое поле + ограничение по автору.
func buildWhere(q listquery.Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range q.Filter {
		if !knownColumn(c.Column) {
			return "", nil, apierr.BadRequest(fmt.Sprintf("Invalid filter %q", c.Column))
		}
		args = append(args, c.Values)
		conds = append(conds, fmt.Sprintf("%s::text = ANY($%d::text[])", c.Column, len(args)))
	}
	if q.CreatedBy != "" {
		args = append(args, q.CreatedBy)
		conds = append(conds, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildOrder(sort []listquery.SortField) (string, error) {
	if len(sort) == 0 {
		return " ORDER BY created_at DESC, id DESC", nil
	}
	parts := make([]string, 0, len(sort)+1)
	for _, s := range sort {
		if !knownColumn(s.Column) {
			return "", apierr.BadRequest(fmt.Sprintf("Invalid sort field %q", s.Column))
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, s.Column+" "+dir)
	}
	// стабильный порядок страниц
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func knownColumn(col string) bool {
	for _, c := range ProductFields {
		if c == col {
			return true
		}
	}
	return false
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Featured, &p.Status, &p.Meta,
		&p.CreatedBy, &p.Created, &p.Updated,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func metaOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// translate — коды Postgres, которые клиент должен различать.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return apierr.Wrap(http.StatusConflict, "Product already exists", err)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException:
		return apierr.Wrap(http.StatusBadRequest, "Invalid Product", err)
	}
	return err
}

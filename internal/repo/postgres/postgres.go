package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/yote/pkg/metrics"
)

// ApplicationName — имя соединений сервиса в pg_stat_activity.
const ApplicationName = "yote-products"

// NewPool — пул соединений к Postgres по DSN.
// maxConns > 0 переопределяет размер пула. Каждый запрос проходит через
// queryTracer (длительность в postgres_query_duration_seconds). В конце Ping для fail-fast.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	cfg.ConnConfig.Tracer = queryTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if connErr := pool.Ping(ctx); connErr != nil {
		pool.Close()
		return nil, connErr
	}
	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	op string
	at time.Time
}

// queryTracer — pgx.QueryTracer: замер длительности запросов по типу операции.
type queryTracer struct{}

var _ pgx.QueryTracer = queryTracer{}

func (queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{op: statementOp(data.SQL), at: time.Now()})
}

func (queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	metrics.PostgresQueryDuration.
		WithLabelValues(start.op, queryResult(data.Err)).
		Observe(time.Since(start.at).Seconds())
}

// statementOp — первое ключевое слово запроса в нижнем регистре ("select", "insert", ...).
// Пустой или нераспознанный запрос — "other".
func statementOp(sql string) string {
	for _, field := range strings.Fields(sql) {
		if strings.HasPrefix(field, "--") {
			continue
		}
		word := strings.ToLower(strings.TrimLeft(field, "("))
		switch word {
		case "select", "insert", "update", "delete", "with", "begin", "commit", "rollback", "create", "alter", "drop":
			return word
		}
		return "other"
	}
	return "other"
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pgx.ErrNoRows):
		return "no_rows"
	default:
		return "error"
	}
}

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// События ресурсов в Kafka.
var (
	KafkaMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Number of resource events fetched from Kafka",
		},
		[]string{"topic"},
	)
	KafkaMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Number of resource events applied successfully",
		},
		[]string{"topic"},
	)
	KafkaMessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_failed_total",
			Help: "Number of resource events failed to apply",
		},
		[]string{"topic"},
	)
	KafkaMessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_published_total",
			Help: "Number of resource events published, by result",
		},
		[]string{"topic", "result"}, // ok|error
	)
)

// Серверный кэш одиночных ресурсов.
var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Server-side resource cache operations",
		},
		[]string{"op"}, // hit|miss|evicted|expired|invalidated
	)
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Number of items currently in server-side cache",
		},
	)
)

// Клиентский кэш ресурсов (Store/Service).
var (
	ResourceCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_cache_operations_total",
			Help: "Client resource cache transitions and reads",
		},
		[]string{"resource", "op"}, // begin|dedup|fulfilled|rejected|invalidated|mutated|removed
	)
	ResourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_fetch_duration_seconds",
			Help:    "Duration of client resource fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "kind"}, // id|single|list
	)
)

// Серверные списки.
var ListQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "list_queries_total",
		Help: "Server list queries by pagination mode",
	},
	[]string{"resource", "mode"}, // paginated|limited
)

// Запросы к Postgres.
var PostgresQueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "postgres_query_duration_seconds",
		Help:    "Duration of Postgres queries by statement type",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op", "result"}, // result: ok|no_rows|error
)

// MustRegister — регистрация всех метрик; повторный вызов безопасен.
func MustRegister() {
	for _, c := range []prometheus.Collector{
		KafkaMessagesConsumed, KafkaMessagesProcessed, KafkaMessagesFailed, KafkaMessagesPublished,
		CacheOps, CacheSize,
		ResourceCacheOps, ResourceFetchDuration,
		ListQueries, PostgresQueryDuration,
	} {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProfileMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qprofile_mutations_total",
			Help: "Total number of quality profile mutations by operation and outcome (count)",
		},
		[]string{"operation", "status"},
	)

	ProfileMutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qprofile_mutation_duration_ms",
			Help:    "Duration of quality profile mutations in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"operation"},
	)

	ChangeSetSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qprofile_changeset_size",
			Help:    "Number of active rule changes produced by one mutation (count)",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	BulkRuleFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qprofile_bulk_rule_failures_total",
			Help: "Total number of rules that failed inside bulk operations (count)",
		},
		[]string{"operation"},
	)

	IndexPropagationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qprofile_index_propagation_total",
			Help: "Total number of change set propagations to the search index (count)",
		},
		[]string{"status"},
	)

	IndexPropagationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qprofile_index_propagation_duration_ms",
			Help:    "Duration of change set propagation to the search index in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	DefaultProfileCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qprofile_default_cache_total",
			Help: "Default profile cache lookups by result (count)",
		},
		[]string{"result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterProfileMetrics() {
	prometheus.MustRegister(ProfileMutationsTotal)
	prometheus.MustRegister(ProfileMutationDuration)
	prometheus.MustRegister(ChangeSetSize)
	prometheus.MustRegister(BulkRuleFailuresTotal)
	prometheus.MustRegister(IndexPropagationTotal)
	prometheus.MustRegister(IndexPropagationDuration)
	prometheus.MustRegister(DefaultProfileCacheTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterHTTPMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func IncProfileMutation(operation, status string) {
	ProfileMutationsTotal.WithLabelValues(operation, status).Inc()
}

func ObserveProfileMutationDuration(operation string, duration time.Duration) {
	ProfileMutationDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}

func ObserveChangeSetSize(operation string, size int) {
	ChangeSetSize.WithLabelValues(operation).Observe(float64(size))
}

func AddBulkRuleFailures(operation string, count int) {
	BulkRuleFailuresTotal.WithLabelValues(operation).Add(float64(count))
}

func IncIndexPropagation(status string) {
	IndexPropagationTotal.WithLabelValues(status).Inc()
}

func ObserveIndexPropagationDuration(duration time.Duration) {
	IndexPropagationDuration.Observe(float64(duration.Milliseconds()))
}

func IncDefaultProfileCache(result string) {
	DefaultProfileCacheTotal.WithLabelValues(result).Inc()
}

func IncRetryAttempt(component string) {
	RetryAttemptsTotal.WithLabelValues(component).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

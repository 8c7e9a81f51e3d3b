package metrics

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	grpcProm "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const divisor = 100

const (
	TriggerSchedule = "schedule"
	TriggerTest     = "test"
	TriggerComment  = "comment"

	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics defines all Prometheus metrics of the push notifier.
type Metrics struct {
	registry *prometheus.Registry

	// RED (Rate, Errors, Duration) for HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec

	// Dispatch cycles
	DispatchCycles   *prometheus.CounterVec // by trigger
	DispatchDuration *prometheus.HistogramVec
	PushMessages     *prometheus.CounterVec // by trigger, result
	WeatherFetches   *prometheus.CounterVec // by result

	// Subscription store
	StoreOperations *prometheus.CounterVec // by op, result

	// RabbitMQ
	RabbitPublishTotal    *prometheus.CounterVec // by routing_key, result
	ConsumerMessagesTotal *prometheus.CounterVec
	ConsumerErrorsTotal   *prometheus.CounterVec

	// gRPC server metrics
	GRPC *grpcProm.ServerMetrics

	ServiceUptime   prometheus.Gauge
	TechnicalErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under the given namespace on
// a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests total",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		DispatchCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_cycles_total",
				Help:      "Dispatch cycles started",
			},
			[]string{"trigger"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_cycle_duration_seconds",
				Help:      "Duration of dispatch cycles",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		PushMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "push_messages_total",
				Help:      "Push messages submitted to the gateway",
			},
			[]string{"trigger", "result"},
		),
		WeatherFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_fetches_total",
				Help:      "Weather provider calls",
			},
			[]string{"result"},
		),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Subscription store operations",
			},
			[]string{"op", "result"},
		),

		RabbitPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rabbitmq_publish_total",
				Help:      "RabbitMQ messages published",
			},
			[]string{"routing_key", "result"},
		),
		ConsumerMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumer_messages_total",
				Help:      "Total number of RabbitMQ messages consumed",
			},
			[]string{"event_type"},
		),
		ConsumerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumer_errors_total",
				Help:      "Total number of errors while processing messages",
			},
			[]string{"event_type", "error_type"},
		),

		GRPC: grpcProm.NewServerMetrics(),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_uptime_seconds",
				Help:      "Service start time in unix seconds",
			},
		),
		TechnicalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "technical_errors_total",
				Help:      "Total technical errors",
			},
			[]string{"error_type", "severity"},
		),
	}

	m.GRPC.EnableHandlingTimeHistogram()

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.DispatchCycles,
		m.DispatchDuration,
		m.PushMessages,
		m.WeatherFetches,
		m.StoreOperations,
		m.RabbitPublishTotal,
		m.ConsumerMessagesTotal,
		m.ConsumerErrorsTotal,
		m.GRPC,
		m.ServiceUptime,
		m.TechnicalErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.ServiceUptime.SetToCurrentTime()
	return m
}

// RegisterDB adds connection pool stats for a SQL backend.
func (m *Metrics) RegisterDB(db *sql.DB, dbName string) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, dbName))
}

// RegisterPool adds connection pool stats for a backend with its own pool,
// read through stat on every scrape.
func (m *Metrics) RegisterPool(stat func() PoolStats, dbName string) {
	m.registry.MustRegister(newPoolStatsCollector(stat, dbName))
}

// Handler exposes the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer gives direct access to the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// HTTPMiddleware instruments Gin HTTP handlers for RED metrics.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		dur := time.Since(start).Seconds()
		statusClass := fmt.Sprintf("%dxx", c.Writer.Status()/divisor)

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusClass).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(dur)
	}
}

// UnaryServerInterceptor returns a gRPC interceptor for server-side metrics.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return m.GRPC.UnaryServerInterceptor()
}

// DispatchCycle wraps one dispatch with cycle count and duration.
func (m *Metrics) DispatchCycle(trigger string, job func()) {
	start := time.Now()
	m.DispatchCycles.WithLabelValues(trigger).Inc()
	job()
	m.DispatchDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordPush(trigger string, count int, err error) {
	m.PushMessages.WithLabelValues(trigger, result(err)).Add(float64(count))
}

func (m *Metrics) RecordWeatherFetch(err error) {
	m.WeatherFetches.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RecordStore(op string, err error) {
	m.StoreOperations.WithLabelValues(op, result(err)).Inc()
	if err != nil {
		m.TechnicalErrors.WithLabelValues("store_"+op, "critical").Inc()
	}
}

// RecordRabbitPublish logs a publish attempt (routing key) result ("ok" or "error").
func (m *Metrics) RecordRabbitPublish(routingKey string, err error) {
	m.RabbitPublishTotal.WithLabelValues(routingKey, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

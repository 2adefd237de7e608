package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// CourseTreeOps 课程内容树同步/删除产生的写操作
	CourseTreeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_tree_ops_total",
			Help: "Rows created, updated or deleted by course tree synchronization and cascade delete",
		},
		[]string{"entity", "action"},
	)

	CourseTreeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_tree_duration_seconds",
			Help:    "Duration of course tree operations including lock wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	CourseLockContention = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_lock_contention_total",
			Help: "Course edits rejected because another edit held the lock",
		},
	)

	NotificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications created, by type and websocket delivery",
		},
		[]string{"type", "delivery"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_ws_connections",
			Help: "Open notification websocket connections on this instance",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			CourseTreeOps,
			CourseTreeDuration,
			CourseLockContention,
			NotificationCounter,
			WSConnections,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

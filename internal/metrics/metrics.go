// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Todo操作の種別（todo_operations_totalのkindラベル）。
const (
	OpSave           = "save"
	OpComplete       = "complete"
	OpPriority       = "priority"
	OpColor          = "color"
	OpDate           = "date"
	OpDday           = "dday"
	OpClearDday      = "clear_dday"
	OpDelete         = "delete"
	OpArchive        = "archive"
	OpDeleteArchived = "delete_archived"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordTodosCreated(count int)
	RecordTodosArchived(count int)
	RecordTodoOperation(kind string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	todosCreated   prometheus.Counter
	todosArchived  prometheus.Counter
	todoOperations *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		todosCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ddaytodo_todos_created_total",
			Help: "作成されたTodoの合計数",
		}),
		todosArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ddaytodo_todos_archived_total",
			Help: "アーカイブされたTodoの合計数",
		}),
		todoOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddaytodo_todo_operations_total",
			Help: "種別ごとのTodo操作数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddaytodo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ddaytodo_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.todosCreated,
		c.todosArchived,
		c.todoOperations,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordTodosCreated は作成されたTodo数を記録する。
func (c *Collector) RecordTodosCreated(count int) {
	c.todosCreated.Add(float64(count))
}

// RecordTodosArchived はアーカイブされたTodo数を記録する。
func (c *Collector) RecordTodosArchived(count int) {
	c.todosArchived.Add(float64(count))
}

// RecordTodoOperation はTodo操作を種別ごとに記録する。
func (c *Collector) RecordTodoOperation(kind string) {
	c.todoOperations.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。CLIの単発コマンドで使用する。
type Nop struct{}

func (Nop) RecordTodosCreated(int) {}
func (Nop) RecordTodosArchived(int) {}
func (Nop) RecordTodoOperation(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

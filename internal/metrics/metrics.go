// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とアロケータから利用する。
type MetricsCollector interface {
	RecordDelivery()
	RecordAllocationConflict()
	RecordEmptySea()
	RecordSelfHealing()
	RecordBottlePosted()
	RecordReport()
	RecordBottleHidden()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	deliveries          prometheus.Counter
	allocationConflicts prometheus.Counter
	emptySea            prometheus.Counter
	selfHealing         prometheus.Counter
	bottlesPosted       prometheus.Counter
	reports             prometheus.Counter
	bottlesHidden       prometheus.Counter
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_deliveries_total",
			Help: "新規に割り当てられた配達の合計数",
		}),
		allocationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_allocation_conflicts_total",
			Help: "配達割り当て時のユニーク制約競合（リトライで吸収）の合計数",
		}),
		emptySea: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_empty_sea_total",
			Help: "候補ボトルが存在せず配達できなかった回数",
		}),
		selfHealing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_self_healing_total",
			Help: "配達済みボトルの非表示化による配達記録の削除・再割り当て回数",
		}),
		bottlesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_bottles_posted_total",
			Help: "投稿されたボトルの合計数",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_reports_total",
			Help: "通報の合計数",
		}),
		bottlesHidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftbottle_bottles_hidden_total",
			Help: "通報閾値到達により非表示になったボトルの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "driftbottle_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.deliveries,
		c.allocationConflicts,
		c.emptySea,
		c.selfHealing,
		c.bottlesPosted,
		c.reports,
		c.bottlesHidden,
		c.httpStatus,
	)

	return c
}

// RecordDelivery は新規配達の割り当てを記録する。
func (c *Collector) RecordDelivery() {
	c.deliveries.Inc()
}

// RecordAllocationConflict は割り当て競合の発生を記録する。
func (c *Collector) RecordAllocationConflict() {
	c.allocationConflicts.Inc()
}

// RecordEmptySea は候補ボトル枯渇を記録する。
func (c *Collector) RecordEmptySea() {
	c.emptySea.Inc()
}

// RecordSelfHealing は配達記録の自己修復削除を記録する。
func (c *Collector) RecordSelfHealing() {
	c.selfHealing.Inc()
}

// RecordBottlePosted はボトル投稿を記録する。
func (c *Collector) RecordBottlePosted() {
	c.bottlesPosted.Inc()
}

// RecordReport は通報を記録する。
func (c *Collector) RecordReport() {
	c.reports.Inc()
}

// RecordBottleHidden はボトルの非表示化を記録する。
func (c *Collector) RecordBottleHidden() {
	c.bottlesHidden.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

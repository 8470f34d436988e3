// Package metrics はPrometheus形式のメトリクス収集を提供する
//
// nilの*Metricsは何もしない実装として安全に使える。メトリクスを
// 無効にしたまま各コンポーネントを動かせるようにするための作りである。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はアプライアンスの動作カウンターを保持する
type Metrics struct {
	registry *prometheus.Registry

	captures        prometheus.Counter
	captureFailures prometheus.Counter
	imageBytes      prometheus.Counter
	filesServed     prometheus.Counter
	edits           *prometheus.CounterVec
}

// New は新しいMetricsを作成する
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "utsushie_captures_total",
			Help: "成功した撮影の総数",
		}),
		captureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "utsushie_capture_failures_total",
			Help: "失敗した撮影の総数",
		}),
		imageBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "utsushie_image_bytes_total",
			Help: "カードへ書き込んだ画像バイト数の総計",
		}),
		filesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "utsushie_files_served_total",
			Help: "コンテンツリゾルバ経由で配信したファイル数",
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "utsushie_edits_total",
			Help: "ファイル操作（list/delete/create/upload）の総数",
		}, []string{"op"}),
	}

	registry.MustRegister(m.captures, m.captureFailures, m.imageBytes, m.filesServed, m.edits)
	return m
}

// Handler は/metrics用のHTTPハンドラを返す
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CaptureOK は成功した撮影を記録する
func (m *Metrics) CaptureOK(bytes int) {
	if m == nil {
		return
	}
	m.captures.Inc()
	m.imageBytes.Add(float64(bytes))
}

// CaptureFailed は失敗した撮影を記録する
func (m *Metrics) CaptureFailed() {
	if m == nil {
		return
	}
	m.captureFailures.Inc()
}

// FileServed はファイル配信を記録する
func (m *Metrics) FileServed() {
	if m == nil {
		return
	}
	m.filesServed.Inc()
}

// Edit はファイル操作を記録する
func (m *Metrics) Edit(op string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(op).Inc()
}

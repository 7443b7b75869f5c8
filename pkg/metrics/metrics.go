package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_series_rows_loaded_total",
		Help: "Total number of source rows loaded",
	}, []string{"table"})

	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_series_rows_skipped_total",
		Help: "Total number of invalid source rows skipped",
	}, []string{"table"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_series_stage_duration_seconds",
		Help:    "Duration of each build stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	DocumentsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_series_documents_written_total",
		Help: "Total number of output documents written",
	}, []string{"status"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stock_series_last_run_timestamp_seconds",
		Help: "Unix time of the last finished run",
	})
)

func RecordRowsLoaded(table string, n int) {
	RowsLoaded.WithLabelValues(table).Add(float64(n))
}

func RecordRowsSkipped(table string, n int) {
	RowsSkipped.WithLabelValues(table).Add(float64(n))
}

func RecordDocumentWritten(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	DocumentsWritten.WithLabelValues(status).Inc()
}

// WriteTextfile grava as métricas no formato do textfile collector do
// node_exporter. Não faz nada quando path é vazio.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	LastRunTimestamp.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveStage(stage string) {
	t.ObserveDuration(StageDuration.WithLabelValues(stage))
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

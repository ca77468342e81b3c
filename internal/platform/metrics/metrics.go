package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rrhh"

// Metrics はアプリケーションの Prometheus メトリクスを保持します。
type Metrics struct {
	AuditEntries       *prometheus.CounterVec
	AuditWriteFailures *prometheus.CounterVec
	Exports            *prometheus.CounterVec
}

// New はメトリクスを生成し、指定された Registerer に登録します。
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries written per ledger.",
		}, []string{"ledger"}),
		AuditWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit ledger writes that failed.",
		}, []string{"ledger"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "employee_exports_total",
			Help:      "Employee exports by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// AuditEntryWritten は台帳への書き込み成功を記録します。
func (m *Metrics) AuditEntryWritten(ledger string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(ledger).Inc()
}

// AuditWriteFailed は台帳への書き込み失敗を記録します。
func (m *Metrics) AuditWriteFailed(ledger string) {
	if m == nil {
		return
	}
	m.AuditWriteFailures.WithLabelValues(ledger).Inc()
}

// ExportAttempted はエクスポートの結果を記録します。
func (m *Metrics) ExportAttempted(kind, outcome string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(kind, outcome).Inc()
}

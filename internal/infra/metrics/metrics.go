package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics — счётчики склада. Регистрируются в переданном реестре.
type Metrics struct {
	LotsCreated    *prometheus.CounterVec
	IssueCommits   *prometheus.CounterVec
	IssuedQuantity prometheus.Counter
	ReportExports  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LotsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperstock",
			Name:      "lots_created_total",
			Help:      "Material lots registered in the ledger.",
		}, []string{"category"}),
		IssueCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperstock",
			Name:      "issuance_commits_total",
			Help:      "Issuance commits by result.",
		}, []string{"result"}),
		IssuedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paperstock",
			Name:      "issued_quantity_total",
			Help:      "Running meters issued against job cards.",
		}),
		ReportExports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperstock",
			Name:      "report_exports_total",
			Help:      "Stock report downloads by format.",
		}, []string{"format"}),
	}
	if reg != nil {
		reg.MustRegister(m.LotsCreated, m.IssueCommits, m.IssuedQuantity, m.ReportExports)
	}
	return m
}

// Nop — метрики без регистрации, для тестов и при выключенном /metrics.
func Nop() *Metrics { return New(nil) }

func (m *Metrics) LotCreated(category string) {
	if m == nil {
		return
	}
	m.LotsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) IssueCommitted(qty float64) {
	if m == nil {
		return
	}
	m.IssueCommits.WithLabelValues("ok").Inc()
	m.IssuedQuantity.Add(qty)
}

func (m *Metrics) IssueFailed() {
	if m == nil {
		return
	}
	m.IssueCommits.WithLabelValues("failed").Inc()
}

func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.ReportExports.WithLabelValues(format).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the ticket lifecycle and the check-in flow
var (
	TicketsIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total number of tickets issued",
		},
	)

	TicketsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_cancelled_total",
			Help: "Total number of tickets cancelled",
		},
	)

	IssueFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_issue_failures_total",
			Help: "Ticket issuance failures by error kind",
		},
		[]string{"kind"},
	)

	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Ticket scans by action and first-scan flag",
		},
		[]string{"action", "first"},
	)

	ScanFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scan_failures_total",
			Help: "Rejected scans by error kind",
		},
		[]string{"kind"},
	)

	RefundRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refund_retries_total",
			Help: "Refund requests that failed and were left for redelivery",
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(TicketsIssuedTotal)
	prometheus.MustRegister(TicketsCancelledTotal)
	prometheus.MustRegister(IssueFailuresTotal)
	prometheus.MustRegister(ScansTotal)
	prometheus.MustRegister(ScanFailuresTotal)
	prometheus.MustRegister(RefundRetriesTotal)
}

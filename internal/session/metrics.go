package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submitConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameforge_session_submit_conflicts_total",
		Help: "Total active-run conflicts encountered while submitting messages.",
	})
	cancelsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameforge_session_cancels_issued_total",
		Help: "Total run cancellation requests dispatched to the session service.",
	})
)

func metricsSubmitConflict() { submitConflictsTotal.Inc() }
func metricsCancelIssued()   { cancelsIssuedTotal.Inc() }

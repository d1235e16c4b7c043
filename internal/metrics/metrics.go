// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "minimon"

var (
	// Proxy poller metrics.
	PollFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "fetches_total",
		Help:      "Total number of proxy fetches by endpoint and result.",
	}, []string{"endpoint", "result"}) // result: "ok", "no_update" or "error"
	PollLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last snapshot replacement per endpoint.",
	}, []string{"endpoint"})
	Glucose = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "glucose_mgdl",
		Help:      "Most recent sensor glucose reading; 0 when the sensor reports none.",
	})

	// Vendor client metrics.
	ClientState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "state",
		Help:      "Current login state of the vendor client (1 for the active state).",
	}, []string{"state"})
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "logins_total",
		Help:      "Total number of vendor login attempts by result.",
	}, []string{"result"})
	RecentDataFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "recent_data_fetches_total",
		Help:      "Total number of vendor recent-data fetches by result.",
	}, []string{"result"}) // "ok", "error", "no_data" or "unauthorized"

	// Proxy supervision metrics.
	ProxyRestartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "proxy",
		Name:      "restarts_total",
		Help:      "Total number of proxy restarts by result.",
	}, []string{"result"})

	// History metrics.
	HistorySamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "samples_total",
		Help:      "Total number of new glucose samples written to history.",
	})
)

func init() {
	prometheus.MustRegister(
		PollFetchesTotal,
		PollLastSuccess,
		Glucose,

		ClientState,
		LoginsTotal,
		RecentDataFetchesTotal,

		ProxyRestartsTotal,

		HistorySamplesTotal,
	)
}

// SetClientState marks current as the active state out of all.
func SetClientState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		ClientState.WithLabelValues(s).Set(v)
	}
}

// Result labels a fetch outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

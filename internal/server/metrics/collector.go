package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the store through the Prometheus registry. Values are
// read from a fresh Snapshot on every scrape.
type Collector struct {
	store *Store

	events     *prometheus.Desc
	oauth      *prometheus.Desc
	duration   *prometheus.Desc
	population *prometheus.Desc
	active     *prometheus.Desc
}

func NewCollector(store *Store) *Collector {
	return &Collector{
		store: store,
		events: prometheus.NewDesc("chapterhub_auth_events_total",
			"Auth events recorded since process start.", []string{"event"}, nil),
		oauth: prometheus.NewDesc("chapterhub_auth_oauth_events_total",
			"OAuth outcomes by provider.", []string{"provider", "outcome"}, nil),
		duration: prometheus.NewDesc("chapterhub_auth_session_duration_seconds_total",
			"Summed lifetime of ended sessions.", nil, nil),
		population: prometheus.NewDesc("chapterhub_auth_population",
			"Population gauges refreshed by the capture job.", []string{"gauge"}, nil),
		active: prometheus.NewDesc("chapterhub_auth_active_sessions",
			"Sessions created and not yet invalidated or expired.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.oauth
	ch <- c.duration
	ch <- c.population
	ch <- c.active
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Snapshot()

	for kind, v := range snap.Counters.EventCounts() {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(v), string(kind))
	}
	for provider, v := range snap.Counters.OAuth {
		ch <- prometheus.MustNewConstMetric(c.oauth, prometheus.CounterValue, float64(v.Success), provider, "success")
		ch <- prometheus.MustNewConstMetric(c.oauth, prometheus.CounterValue, float64(v.Failure), provider, "failure")
	}
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, float64(snap.Counters.Sessions.TotalDurationSeconds))
	ch <- prometheus.MustNewConstMetric(c.population, prometheus.GaugeValue, float64(snap.Counters.Users.Total), GaugeTotalUsers)
	ch <- prometheus.MustNewConstMetric(c.population, prometheus.GaugeValue, float64(snap.Counters.Users.PendingLegacyMigrations), GaugePendingLegacyMigrations)
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(snap.Rates.ActiveSessions))
}

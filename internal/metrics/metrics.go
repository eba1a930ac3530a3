// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CallsStarted   prometheus.Counter
	CallsSettled   *prometheus.CounterVec
	CoinsCharged   prometheus.Counter
	CoinsEarned    prometheus.Counter
	RewardsGranted *prometheus.CounterVec

	SettlementDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CallsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "amora_calls_started_total",
			Help: "Call sessions created.",
		}),
		CallsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "amora_calls_settled_total",
			Help: "End-call settlements by terminal status.",
		}, []string{"status"}),
		CoinsCharged: factory.NewCounter(prometheus.CounterOpts{
			Name: "amora_coins_charged_total",
			Help: "Coins debited from callers.",
		}),
		CoinsEarned: factory.NewCounter(prometheus.CounterOpts{
			Name: "amora_coins_earned_total",
			Help: "Coins credited to receivers.",
		}),
		RewardsGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "amora_rewards_granted_total",
			Help: "Reward grants by rule type.",
		}, []string{"rule_type"}),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "amora_settlement_duration_seconds",
			Help:    "Wall time of the end-call settlement transaction.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the scrape endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "rewardnode"

type metrics struct {
	rewardQueries        *prometheus.CounterVec
	recalcRuns           prometheus.Counter
	recalcFailures       *prometheus.CounterVec
	recalcDuration       prometheus.Histogram
	invalidationFailures prometheus.Counter
	claimsIssued         prometheus.Counter
	claimVerifications   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		rewardQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reward_queries_total",
			Help:      "Pending reward queries by outcome.",
		}, []string{"result"}),
		recalcRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recalculation_runs_total",
			Help:      "Completed recalculation runs.",
		}),
		recalcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recalculation_chain_failures_total",
			Help:      "Chains that failed during a recalculation run.",
		}, []string{"chain"}),
		recalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Wall time of a recalculation run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		invalidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_invalidation_failures_total",
			Help:      "Recalculation runs whose reward cache invalidation failed.",
		}),
		claimsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "claim_proofs_issued_total",
			Help:      "Signed claim proofs handed out.",
		}),
		claimVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "claim_verifications_total",
			Help:      "Claim proof verifications by outcome.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.rewardQueries, m.recalcRuns, m.recalcFailures, m.recalcDuration, m.invalidationFailures, m.claimsIssued, m.claimVerifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

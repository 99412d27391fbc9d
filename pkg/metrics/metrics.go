package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "documents_created_total", Help: "Number of document versions created, by class."},
		[]string{"class"},
	)
	NumbersAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "numbers_allocated_total", Help: "Number of document numbers allocated, by type prefix."},
		[]string{"prefix"},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "approval_decisions_total", Help: "Number of approval decisions recorded, by outcome."},
		[]string{"decision"},
	)
	Releases = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "releases_total", Help: "Number of documents released, by path (consensus or direct)."},
		[]string{"path"},
	)
	Obsoletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "obsoletions_total", Help: "Number of documents marked obsolete, by reason."},
		[]string{"reason"},
	)
	Promotions = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "promotions_total", Help: "Number of prototype documents promoted to production."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veridoc", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentsCreated)
	reg.MustRegister(NumbersAllocated)
	reg.MustRegister(Decisions)
	reg.MustRegister(Releases)
	reg.MustRegister(Obsoletions)
	reg.MustRegister(Promotions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

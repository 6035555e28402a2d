package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatguard/internal/moderation/models"
)

type Metrics struct {
	Evaluations      *prometheus.CounterVec
	Violations       *prometheus.CounterVec
	Suspensions      prometheus.Counter
	NoticesSent      *prometheus.CounterVec
	NoticeFailures   *prometheus.CounterVec
	LockWaitSeconds  prometheus.Histogram
	EvaluateDuration prometheus.Histogram
}

// New registers the moderation metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatguard_moderation_evaluations_total",
			Help: "Total number of send attempts evaluated, by outcome",
		}, []string{"outcome"}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatguard_moderation_violations_total",
			Help: "Total number of violations recorded, by primary category and strike",
		}, []string{"category", "strike"}),
		Suspensions: f.NewCounter(prometheus.CounterOpts{
			Name: "chatguard_moderation_suspensions_total",
			Help: "Total number of accounts suspended after a final strike",
		}),
		NoticesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatguard_moderation_notices_sent_total",
			Help: "Total number of enforcement notices handed to the dispatcher",
		}, []string{"notice_type"}),
		NoticeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatguard_moderation_notice_failures_total",
			Help: "Total number of enforcement notices that could not be dispatched",
		}, []string{"notice_type"}),
		LockWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatguard_moderation_lock_wait_seconds",
			Help:    "Time spent waiting for the per-user violation lock",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		}),
		EvaluateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatguard_moderation_evaluate_duration_seconds",
			Help:    "End-to-end latency of a gate evaluation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementEvaluation(outcome models.Outcome) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) IncrementViolation(category models.Category, strike models.StrikeNumber) {
	if m == nil {
		return
	}
	m.Violations.WithLabelValues(string(category), strike.Label()).Inc()
}

func (m *Metrics) IncrementSuspensions() {
	if m == nil {
		return
	}
	m.Suspensions.Inc()
}

func (m *Metrics) IncrementNoticeSent(noticeType models.NoticeType) {
	if m == nil {
		return
	}
	m.NoticesSent.WithLabelValues(string(noticeType)).Inc()
}

func (m *Metrics) IncrementNoticeFailure(noticeType models.NoticeType) {
	if m == nil {
		return
	}
	m.NoticeFailures.WithLabelValues(string(noticeType)).Inc()
}

func (m *Metrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.LockWaitSeconds.Observe(seconds)
}

func (m *Metrics) ObserveEvaluateDuration(seconds float64) {
	if m == nil {
		return
	}
	m.EvaluateDuration.Observe(seconds)
}

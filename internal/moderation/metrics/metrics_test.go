package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"chatguard/internal/moderation/models"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementEvaluation(models.OutcomeAllowed)
	m.IncrementEvaluation(models.OutcomeAllowed)
	m.IncrementViolation(models.CategoryPhoneNumber, models.StrikeSecond)
	m.IncrementSuspensions()
	m.IncrementNoticeFailure(models.NoticeSuspensionFinal)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("PHONE_NUMBER", "STRIKE_2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Suspensions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NoticeFailures.WithLabelValues("SUSPENSION_FINAL")))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementEvaluation(models.OutcomeSuspended)
		m.IncrementSuspensions()
		m.ObserveLockWait(0.1)
	})
}

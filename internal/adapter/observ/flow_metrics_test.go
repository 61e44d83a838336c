package observ_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/internal/adapter/observ"
)

func TestFlowMetrics_CountsOutcomesAndGaps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observ.NewFlowMetrics(reg)

	m.Outcome("nfc", "DONE")
	m.Outcome("nfc", "DONE")
	m.Outcome("pay_now", "VERIFY_FAILED")
	m.Gap("nfc")
	m.StepDuration("nfc", "verify", 120*time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "campuspay_payment_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // two label sets

	n, err = testutil.GatherAndCount(reg, "campuspay_reconciliation_gaps_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = testutil.GatherAndCount(reg, "campuspay_payment_step_duration_ms")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFlowMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observ.NewFlowMetrics(reg)
	assert.Panics(t, func() { observ.NewFlowMetrics(reg) })
}

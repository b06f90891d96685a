package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishing-exam-alert/backend/internal/metrics"
)

func TestNew_registersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.CyclesTotal.WithLabelValues("alert").Inc()
	m.MailsSent.WithLabelValues("notification").Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "exam_alert_cycles_total")
	assert.Contains(t, names, "exam_alert_mails_sent_total")
	assert.InDelta(t, 2, testutil.ToFloat64(m.MailsSent.WithLabelValues("notification")), 0)
}

func TestNew_nilRegistry(t *testing.T) {
	m := metrics.New(nil)

	m.DistanceLookups.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.DistanceLookups), 0)
}

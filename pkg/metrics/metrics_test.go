package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFmtFixer(t *testing.T) {
	assert.Equal(t, "airag_rag_router", FmtFixer("airag.rag-router"))
}

func TestRegisterTwice(t *testing.T) {
	SetupMetricsManager("airag", "test", prometheus.NewRegistry())

	a := NewCounterVec("router_fallback", []string{"reason"})
	b := NewCounterVec("router_fallback", []string{"reason"})

	a.WithLabelValues("timeout").Inc()
	b.WithLabelValues("timeout").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(a.WithLabelValues("timeout")))
}

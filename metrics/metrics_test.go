package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreDescribable(t *testing.T) {
	// A minimal smoke test: every collector above must be usable and
	// describable without panicking, which is what MustRegister will
	// require of them at daemon startup.
	var collectors = []prometheus.Collector{
		NodeIsLeader, QueryOutcomeTotal, QueryRouteDuration, BusPublishTotal, LeaderElectionTotal,
	}
	for _, c := range collectors {
		var ch = make(chan *prometheus.Desc, 1)
		go func() {
			c.Describe(ch)
			close(ch)
		}()
		var sawDesc bool
		for range ch {
			sawDesc = true
		}
		require.True(t, sawDesc)
	}
}

func TestQueryOutcomeTotalIncrements(t *testing.T) {
	QueryOutcomeTotal.WithLabelValues(Ok).Inc()
	QueryOutcomeTotal.WithLabelValues(Fail).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for query-outcome metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for node.Node and router.Router.
var (
	NodeIsLeader = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sqlitecoord_node_is_leader",
		Help: "1 if this node currently holds the origin's leadership lock, else 0.",
	})
	QueryOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlitecoord_query_outcome_total",
		Help: "Cumulative number of queries dispatched through the router, by outcome.",
	}, []string{"outcome"})
	QueryRouteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqlitecoord_query_route_duration_seconds",
		Help:    "Time from Router.Query's call to its return, covering both local execution and bus round trips.",
		Buckets: prometheus.DefBuckets,
	})
	BusPublishTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlitecoord_bus_publish_total",
		Help: "Cumulative number of messages published to the Inter-Context Bus.",
	})
	LeaderElectionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlitecoord_leader_election_total",
		Help: "Cumulative number of times any node in this process won origin leadership.",
	})
)

// MustRegister registers every collector above with the default registry.
// cmd/sqlcored calls this once at startup.
func MustRegister() {
	prometheus.MustRegister(NodeIsLeader, QueryOutcomeTotal, QueryRouteDuration, BusPublishTotal, LeaderElectionTotal)
}

// Package metrics exposes the server's runtime counters and gauges
// through prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the server registers, exported
// through Prometheus's pull model instead of a custom STATS command
// payload.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
	ExpiredKeysTotal prometheus.Counter
	EvictedKeysTotal prometheus.Counter
	KeyspaceHits     prometheus.Counter
	KeyspaceMisses   prometheus.Counter
	LastSaveUnixTime prometheus.Gauge
	AOFFsyncFailures prometheus.Counter
	BlockedClients   prometheus.Gauge
	PubSubMessages   prometheus.Counter
}

// New registers every collector against reg and returns the bundle.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gofastd_commands_total",
			Help: "Total commands processed, labeled by command name.",
		}, []string{"command"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gofastd_connected_clients",
			Help: "Number of client connections currently open.",
		}),
		ExpiredKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_expired_keys_total",
			Help: "Total keys removed by lazy or active expiration.",
		}),
		EvictedKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_evicted_keys_total",
			Help: "Total keys removed by the maxmemory eviction policy.",
		}),
		KeyspaceHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_keyspace_hits_total",
			Help: "Total successful key lookups.",
		}),
		KeyspaceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_keyspace_misses_total",
			Help: "Total failed key lookups.",
		}),
		LastSaveUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gofastd_last_save_unixtime",
			Help: "Unix timestamp of the last successful snapshot save.",
		}),
		AOFFsyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_aof_fsync_failures_total",
			Help: "Total AOF fsync calls that returned an error.",
		}),
		BlockedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gofastd_blocked_clients",
			Help: "Number of clients currently blocked in BLPOP/BRPOP.",
		}),
		PubSubMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofastd_pubsub_messages_total",
			Help: "Total messages delivered to subscribers.",
		}),
	}
	reg.MustRegister(
		m.CommandsTotal,
		m.ConnectedClients,
		m.ExpiredKeysTotal,
		m.EvictedKeysTotal,
		m.KeyspaceHits,
		m.KeyspaceMisses,
		m.LastSaveUnixTime,
		m.AOFFsyncFailures,
		m.BlockedClients,
		m.PubSubMessages,
	)
	return m
}

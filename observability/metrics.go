// Package observability exposes the gateway's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_gateway_sessions_live",
		Help: "Sessions that completed login and are not closed yet",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_logins_total",
		Help: "Login attempts by outcome (ok, bad_token, join_failed, broken)",
	}, []string{"outcome"})

	ReplayedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_replayed_records_total",
		Help: "Backlog CHAT records delivered during login replay",
	})

	ReplayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_replay_errors_total",
		Help: "Login replays aborted by a bus error",
	})

	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_broadcast_drops_total",
		Help: "Frames a local member could not accept during a broadcast",
	})

	PublishedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_published_records_total",
		Help: "Records handed to the bus by outcome (ok, error)",
	}, []string{"outcome"})

	ConsumedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_consumed_records_total",
		Help: "Records returned by live consumption",
	})

	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_commits_total",
		Help: "Bus position commits by side (producer, consumer)",
	}, []string{"side"})

	Rebalances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_rebalances_total",
		Help: "Shard redistributions caused by worker registration or release",
	})

	RelayTickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_gateway_relay_tick_errors_total",
		Help: "Relay ticks whose live consumption failed",
	})

	RelayedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_relayed_records_total",
		Help: "Live records handled by the relay by outcome (broadcast, self, undecodable)",
	}, []string{"outcome"})

	LeaseRenewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_gateway_server_lease_renewals_total",
		Help: "Server lease renewals by outcome (ok, reacquired, lost, error)",
	}, []string{"outcome"})
)

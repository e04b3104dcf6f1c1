package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	roomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "game_rooms_active",
			Help: "Number of live game rooms",
		},
	)
	gamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_finished_total",
			Help: "Total finished games",
		},
		[]string{"mode"},
	)
	forfeitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_forfeits_total",
			Help: "Games ended by a disconnect forfeit",
		},
		[]string{"mode"},
	)
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_connections_total",
			Help: "Total accepted websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(roomsActive)
	prometheus.MustRegister(gamesFinished)
	prometheus.MustRegister(forfeitsTotal)
	prometheus.MustRegister(ConnectionsTotal)
}

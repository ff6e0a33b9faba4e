package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestMetrics = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "taziri",
		Subsystem:  "http",
		Name:       "request_duration_seconds",
		Help:       "HTTPリクエストの処理時間",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"method", "route", "status"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "作成された注文数",
	}, []string{"item_type", "delivery_type", "via_resell"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "orders",
		Name:      "status_transitions_total",
		Help:      "注文ステータスの遷移数",
	}, []string{"from", "to"})

	// success / retry / failed / skipped
	CarrierAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "carrier",
		Name:      "registration_attempts_total",
		Help:      "配送会社への登録試行",
	}, []string{"result"})

	ShipmentBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "taziri",
		Subsystem: "carrier",
		Name:      "shipment_backlog",
		Help:      "queued のまま残っている配送ジョブ数",
	})

	SlugCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "resell",
		Name:      "slug_collisions_total",
		Help:      "スラッグ生成時の衝突回数",
	})

	// hit / miss
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Redisキャッシュの参照結果",
	}, []string{"cache", "result"})

	// ok / error / ignored
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taziri",
		Subsystem: "kafka",
		Name:      "events_consumed_total",
		Help:      "notifier が処理したイベント",
	}, []string{"event_type", "status"})
)

func ObserveRequest(method, route string, status int, d time.Duration) {
	RequestMetrics.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

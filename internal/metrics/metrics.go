package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChannelOpensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopsync_channel_opens_total",
		Help: "Total number of successful realtime channel opens.",
	})

	ChannelReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopsync_channel_reconnects_total",
		Help: "Total number of reconnect attempts scheduled after an abnormal close.",
	})

	CartUpdatesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopsync_cart_updates_applied_total",
		Help: "Total number of cart_updated events applied to local state.",
	})

	EventsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_events_ignored_total",
		Help: "Total number of inbound events dropped, by reason.",
	},
		[]string{"reason"},
	)

	LocationReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_location_reports_total",
		Help: "Total number of location report attempts, by outcome.",
	},
		[]string{"outcome"},
	)

	CartItemsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopsync_cart_items",
		Help: "Current number of line items in the local cart snapshot.",
	})
)

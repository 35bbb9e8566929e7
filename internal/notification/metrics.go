// internal/notification/metrics.go

package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "beegin_notifications_created_total",
	Help: "Total number of notifications created, by type",
}, []string{"type"})

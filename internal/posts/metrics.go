// internal/posts/metrics.go
// Prometheus metrics for the posts module

package posts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beegin_posts_created_total",
		Help: "Total number of posts created",
	})

	postsSharedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beegin_posts_shared_total",
		Help: "Total number of shares created",
	})

	postLikesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beegin_post_likes_total",
		Help: "Total number of post like and unlike actions",
	}, []string{"action"})

	feedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beegin_feed_requests_total",
		Help: "Total number of post list requests served",
	})
)

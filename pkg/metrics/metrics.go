package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by method, route and status"},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	ForumVotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "forum_votes_total", Help: "Votes cast on forum entities"},
		[]string{"entity_type"},
	)
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ai_requests_total", Help: "AI endpoint calls by outcome (ok, degraded, error)"},
		[]string{"endpoint", "outcome"},
	)
	AnalyticsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analytics_events_total", Help: "Accepted analytics events by kind"},
		[]string{"kind"},
	)
	NewsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "news_items_ingested_total", Help: "Industry news items stored as resources"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPDuration, ForumVotes, AIRequests, AnalyticsEvents, NewsIngested)
	})
}

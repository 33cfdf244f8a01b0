// Package metrics exposes the portal's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemsutalks", Name: "snapshot_saves_total", Help: "Store snapshot writes by store and outcome",
	}, []string{"store", "outcome"})
	SentimentsPosted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemsutalks", Name: "sentiments_posted_total", Help: "Feed posts by heuristic polarity",
	}, []string{"polarity"})
	NotificationsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemsutalks", Name: "notifications_emitted_total", Help: "Admin notifications by type",
	}, []string{"type"})
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemsutalks", Name: "logins_total", Help: "Login attempts by outcome",
	}, []string{"outcome"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemsutalks", Name: "http_requests_total", Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
	AIRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nemsutalks", Name: "ai_request_seconds", Help: "Latency of language model calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})
)

func init() {
	prometheus.MustRegister(SnapshotSaves, SentimentsPosted, NotificationsEmitted, Logins, HTTPRequests, AIRequestSeconds)
}

func Handler() http.Handler { return promhttp.Handler() }

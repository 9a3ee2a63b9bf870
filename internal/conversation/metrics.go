package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memeyard_events_total",
		Help: "Inbound events handled, by kind.",
	}, []string{"kind"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memeyard_transitions_total",
		Help: "Scene entries, by scene.",
	}, []string{"scene"})

	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memeyard_reviews_total",
		Help: "Review verdicts applied, by verdict.",
	}, []string{"verdict"})

	submissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memeyard_submissions_created_total",
		Help: "Submissions uploaded.",
	})

	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memeyard_publish_total",
		Help: "Publish attempts, by result.",
	}, []string{"result"})
)

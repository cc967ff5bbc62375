package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intentsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cosigner",
		Name:      "intents_built_total",
		Help:      "Number of intents built, by recency anchor kind.",
	}, []string{"anchor"})

	signaturesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cosigner",
		Name:      "signatures_added_total",
		Help:      "Number of signature slots filled.",
	})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cosigner",
		Name:      "submissions_total",
		Help:      "Number of submission attempts, by outcome.",
	}, []string{"result"})

	handoffEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cosigner",
		Name:      "handoff_events_total",
		Help:      "Number of relay mailbox events, by type.",
	}, []string{"event"})
)

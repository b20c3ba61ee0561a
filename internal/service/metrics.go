package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The play endpoint hides validation failures behind a 200 with fallback
// HTML, so the outcome has to stay observable here.
var (
	artifactValidationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameforge_artifact_validation_total",
		Help: "Artifact validation outcomes by result (valid, fixed, invalid).",
	}, []string{"result"})

	generationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameforge_generation_failures_total",
		Help: "Generation pipeline failures by stage.",
	}, []string{"stage"})

	buildsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameforge_builds_created_total",
		Help: "Total builds created.",
	})
)

func observeValidation(result string) { artifactValidationTotal.WithLabelValues(result).Inc() }

func observeGenerationFailure(stage string) { generationFailuresTotal.WithLabelValues(stage).Inc() }

package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

// DiagnosisEngine routes each request to the loaded classifier when one is
// available and to the hemoglobin rule fallback otherwise, then composes the
// severity color and recommendation. The two paths are exclusive: a failing
// classifier is a request-level error, never a silent downgrade.
type DiagnosisEngine struct {
	logger     *logrus.Logger
	classifier domain.Classifier
}

// NewDiagnosisEngine creates the engine. classifier may be nil, which selects
// the rule fallback for every request.
func NewDiagnosisEngine(logger *logrus.Logger, classifier domain.Classifier) *DiagnosisEngine {
	return &DiagnosisEngine{
		logger:     logger,
		classifier: classifier,
	}
}

// ClassifierAvailable reports whether a trained classifier was injected.
func (e *DiagnosisEngine) ClassifierAvailable() bool {
	return e.classifier != nil
}

// Diagnose produces the uniform diagnosis result for one validated request.
func (e *DiagnosisEngine) Diagnose(ctx context.Context, req *domain.PredictionRequest) (*domain.DiagnosisResult, error) {
	var (
		category string
		probs    domain.Distribution
	)

	if e.classifier != nil {
		dist, err := e.classifier.PredictProbabilities(req)
		if err != nil {
			e.logger.WithError(err).Error("Classifier probability estimation failed")
			return nil, &domain.InferenceError{Err: err}
		}
		label, err := argmaxLabel(e.classifier.KnownLabels(), dist)
		if err != nil {
			e.logger.WithError(err).Error("Classifier returned an unusable distribution")
			return nil, &domain.InferenceError{Err: err}
		}
		category, probs = label, dist
	} else {
		category, probs = FallbackDiagnose(req)
	}

	result := &domain.DiagnosisResult{
		Category:       category,
		Probabilities:  probs,
		SeverityColor:  SeverityColor(category),
		Recommendation: Recommendation(category),
	}

	e.logger.WithFields(logrus.Fields{
		"category":       result.Category,
		"severity_color": result.SeverityColor,
		"hemoglobin":     req.Hemoglobina,
		"classifier":     e.classifier != nil,
	}).Info("Diagnosis computed")

	return result, nil
}

// argmaxLabel selects the highest-probability label from one inference pass.
// Walking the model's label order makes ties resolve deterministically.
func argmaxLabel(labels []string, dist domain.Distribution) (string, error) {
	if len(dist) == 0 {
		return "", errors.New("empty probability distribution")
	}
	if len(labels) == 0 {
		for label := range dist {
			labels = append(labels, label)
		}
		sort.Strings(labels)
	}

	best := ""
	bestProb := math.Inf(-1)
	for _, label := range labels {
		if p, ok := dist[label]; ok && p > bestProb {
			best, bestProb = label, p
		}
	}
	if best == "" {
		return "", errors.New("distribution labels do not match known labels")
	}
	return best, nil
}

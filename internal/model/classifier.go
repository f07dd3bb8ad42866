package model

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

// PipelineClassifier adapts a loaded Artifact to the domain.Classifier
// interface. It holds no mutable state and is safe for concurrent use.
type PipelineClassifier struct {
	artifact *Artifact
	labels   []string
	logger   *logrus.Logger
}

// NewPipelineClassifier wraps a loaded artifact. Labels are resolved once
// here, never per request.
func NewPipelineClassifier(artifact *Artifact, logger *logrus.Logger) *PipelineClassifier {
	return &PipelineClassifier{
		artifact: artifact,
		labels:   artifact.labels(),
		logger:   logger,
	}
}

// Predict returns the label with the highest score for the request.
func (c *PipelineClassifier) Predict(req *domain.PredictionRequest) (string, error) {
	scores, err := c.scores(req)
	if err != nil {
		return "", err
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return c.labels[best], nil
}

// PredictProbabilities returns the softmax distribution over known labels.
func (c *PipelineClassifier) PredictProbabilities(req *domain.PredictionRequest) (domain.Distribution, error) {
	scores, err := c.scores(req)
	if err != nil {
		return nil, err
	}

	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var total float64
	exps := make([]float64, len(scores))
	for i, s := range scores {
		exps[i] = math.Exp(s - max)
		total += exps[i]
	}

	dist := make(domain.Distribution, len(c.labels))
	for i, label := range c.labels {
		dist[label] = exps[i] / total
	}
	return dist, nil
}

// KnownLabels returns the class labels the model was trained on.
func (c *PipelineClassifier) KnownLabels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// scores computes the linear score per class for the encoded request.
func (c *PipelineClassifier) scores(req *domain.PredictionRequest) ([]float64, error) {
	vec, err := c.featureVector(req)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(c.artifact.Intercepts))
	for i := range scores {
		s := c.artifact.Intercepts[i]
		for j, v := range vec {
			s += c.artifact.Coefficients[i][j] * v
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("non-finite score for class %q", c.labels[i])
		}
		scores[i] = s
	}
	return scores, nil
}

// featureVector standardizes the numeric inputs and one-hot encodes the
// categorical ones in the artifact's declared order. Categorical values
// outside the training vocabulary encode to an all-zero block.
func (c *PipelineClassifier) featureVector(req *domain.PredictionRequest) ([]float64, error) {
	vec := make([]float64, 0, c.artifact.featureDim())

	for _, nf := range c.artifact.Numeric {
		value, err := numericValue(req, nf.Name)
		if err != nil {
			return nil, err
		}
		std := nf.Std
		if std <= 0 {
			std = 1
		}
		vec = append(vec, (value-nf.Mean)/std)
	}

	for _, cf := range c.artifact.Categorical {
		value, err := categoricalValue(req, cf.Name)
		if err != nil {
			return nil, err
		}
		for _, known := range cf.Vocabulary {
			if value == known {
				vec = append(vec, 1)
			} else {
				vec = append(vec, 0)
			}
		}
	}

	return vec, nil
}

func numericValue(req *domain.PredictionRequest, name string) (float64, error) {
	switch name {
	case "EdadMeses":
		return float64(req.EdadMeses), nil
	case "Hemoglobina":
		return req.Hemoglobina, nil
	case "AlturaREN":
		return req.AlturaREN, nil
	case "Consejeria":
		return float64(req.Consejeria), nil
	case "Suplementacion":
		return float64(req.Suplementacion), nil
	case "Cred":
		return float64(req.Cred), nil
	default:
		return 0, fmt.Errorf("artifact references unknown numeric feature %q", name)
	}
}

func categoricalValue(req *domain.PredictionRequest, name string) (string, error) {
	switch name {
	case "Diresa":
		return req.Diresa, nil
	case "Sexo":
		return req.Sexo, nil
	default:
		return "", fmt.Errorf("artifact references unknown categorical feature %q", name)
	}
}

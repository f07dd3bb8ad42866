package domain

import "context"

// Classifier is the adapter contract over a pre-trained classification
// pipeline. Any model-specific introspection (label extraction, feature
// layout) happens once at load time; per-request calls see only this surface.
type Classifier interface {
	// Predict returns the most likely category label for the request.
	Predict(req *PredictionRequest) (string, error)
	// PredictProbabilities returns one probability per known label.
	PredictProbabilities(req *PredictionRequest) (Distribution, error)
	// KnownLabels returns the class labels the underlying model was trained on.
	KnownLabels() []string
}

// HistoryStore is the append-only durable log of every decision. Append
// serializes concurrent writers; ReadAll performs a full scan and lazily
// initializes an absent log.
type HistoryStore interface {
	Append(ctx context.Context, record *HistoryRecord) error
	ReadAll(ctx context.Context) ([]HistoryRecord, error)
}

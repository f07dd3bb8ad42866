package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemia-triage-server/internal/domain"
)

func loadTestClassifier(t *testing.T) *PipelineClassifier {
	t.Helper()
	artifact, err := Load(writeArtifact(t, artifactV2JSON), newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, artifact)
	return NewPipelineClassifier(artifact, newTestLogger())
}

func TestPipelineClassifier_Predict(t *testing.T) {
	classifier := loadTestClassifier(t)

	tests := []struct {
		name string
		req  domain.PredictionRequest
		want string
	}{
		{"low hemoglobin", domain.PredictionRequest{Hemoglobina: 6.5, Sexo: "F"}, "Severa"},
		{"high hemoglobin", domain.PredictionRequest{Hemoglobina: 13.0, Sexo: "M"}, "Normal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := classifier.Predict(&tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestPipelineClassifier_ProbabilitiesSumToOne(t *testing.T) {
	classifier := loadTestClassifier(t)

	req := &domain.PredictionRequest{Hemoglobina: 9.3, Sexo: "F", Diresa: "LIMA"}

	dist, err := classifier.PredictProbabilities(req)

	require.NoError(t, err)
	assert.Len(t, dist, 4)
	assert.InDelta(t, 1.0, dist.Sum(), 1e-6)
	for label, p := range dist {
		assert.GreaterOrEqual(t, p, 0.0, "label %s", label)
		assert.LessOrEqual(t, p, 1.0, "label %s", label)
	}
}

func TestPipelineClassifier_PredictMatchesArgmax(t *testing.T) {
	classifier := loadTestClassifier(t)

	req := &domain.PredictionRequest{Hemoglobina: 10.4, Sexo: "M"}

	label, err := classifier.Predict(req)
	require.NoError(t, err)

	dist, err := classifier.PredictProbabilities(req)
	require.NoError(t, err)

	for other, p := range dist {
		assert.LessOrEqual(t, p, dist[label], "label %s outranks prediction", other)
	}
}

func TestPipelineClassifier_UnknownCategoryValueEncodesToZeros(t *testing.T) {
	classifier := loadTestClassifier(t)

	// "I" is outside the Sexo vocabulary; inference must still succeed.
	req := &domain.PredictionRequest{Hemoglobina: 12.5, Sexo: "I"}

	label, err := classifier.Predict(req)

	require.NoError(t, err)
	assert.Equal(t, "Normal", label)
}

func TestPipelineClassifier_UnknownFeatureNameFails(t *testing.T) {
	artifact, err := Load(writeArtifact(t, `{
		"schema_version": 2,
		"classes": ["Normal", "Severa"],
		"numeric_features": [{"name": "Peso", "mean": 10.0, "std": 1.0}],
		"coefficients": [[1.0], [-1.0]],
		"intercepts": [0.0, 0.0]
	}`), newTestLogger())
	require.NoError(t, err)
	classifier := NewPipelineClassifier(artifact, newTestLogger())

	_, err = classifier.Predict(&domain.PredictionRequest{Hemoglobina: 11})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown numeric feature")
}

func TestPipelineClassifier_KnownLabelsIsACopy(t *testing.T) {
	classifier := loadTestClassifier(t)

	labels := classifier.KnownLabels()
	require.Equal(t, []string{"Normal", "Leve", "Moderada", "Severa"}, labels)

	labels[0] = "mutated"
	assert.Equal(t, []string{"Normal", "Leve", "Moderada", "Severa"}, classifier.KnownLabels())
}

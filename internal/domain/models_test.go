package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *PredictionRequest {
	return &PredictionRequest{
		EdadMeses:      24,
		Hemoglobina:    6.5,
		AlturaREN:      2500,
		Diresa:         "X",
		Consejeria:     1,
		Suplementacion: 0,
		Sexo:           "F",
		Cred:           1,
	}
}

func TestPredictionRequest_Validate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	tests := []struct {
		name   string
		mutate func(r *PredictionRequest)
	}{
		{"age below range", func(r *PredictionRequest) { r.EdadMeses = -1 }},
		{"age above range", func(r *PredictionRequest) { r.EdadMeses = 61 }},
		{"hemoglobin above range", func(r *PredictionRequest) { r.Hemoglobina = 20.5 }},
		{"altitude above range", func(r *PredictionRequest) { r.AlturaREN = 6001 }},
		{"missing region", func(r *PredictionRequest) { r.Diresa = "" }},
		{"counseling flag out of range", func(r *PredictionRequest) { r.Consejeria = 2 }},
		{"supplementation flag negative", func(r *PredictionRequest) { r.Suplementacion = -1 }},
		{"missing sex", func(r *PredictionRequest) { r.Sexo = "" }},
		{"checkup flag out of range", func(r *PredictionRequest) { r.Cred = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestNewHistoryRecord_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	result := &DiagnosisResult{
		Category:       "Severa",
		Probabilities:  Degenerate(Severa),
		SeverityColor:  ColorRed,
		Recommendation: "Refer for immediate/hospital-level care.",
	}

	record, err := NewHistoryRecord(now, validRequest(), result)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-01T15:04:05Z", record.Fecha)
	assert.Equal(t, "Severa", record.DxPredicho)
	assert.Equal(t, 24, record.EdadMeses)

	dist, err := record.Probabilities()
	require.NoError(t, err)
	assert.Equal(t, result.Probabilities, dist)
}

func TestDegenerate(t *testing.T) {
	for _, category := range Categories() {
		dist := Degenerate(category)
		assert.Len(t, dist, 4)
		assert.Equal(t, 1.0, dist[category.String()])
		assert.InDelta(t, 1.0, dist.Sum(), 1e-6)
	}
}

func TestCategory_IsValid(t *testing.T) {
	assert.True(t, Normal.IsValid())
	assert.True(t, Severa.IsValid())
	assert.False(t, Category("Critica").IsValid())
	assert.False(t, Category("").IsValid())
}

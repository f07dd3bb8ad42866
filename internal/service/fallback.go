// Package service implements the diagnosis decision engine: the clinical
// rule fallback, the severity/recommendation composer, and the orchestration
// between a loaded classifier and the fallback.
package service

import "github.com/anemia-triage-server/internal/domain"

// Hemoglobin thresholds in g/dL separating the four severity categories.
// Each bound is exclusive on the lower category.
const (
	severaUpperBound   = 7.0
	moderadaUpperBound = 10.0
	leveUpperBound     = 11.0
)

// ClassifyByHemoglobin grades a hemoglobin measurement into one of the four
// categories. It is total: every float maps to exactly one category.
func ClassifyByHemoglobin(hemoglobin float64) domain.Category {
	switch {
	case hemoglobin < severaUpperBound:
		return domain.Severa
	case hemoglobin < moderadaUpperBound:
		return domain.Moderada
	case hemoglobin < leveUpperBound:
		return domain.Leve
	default:
		return domain.Normal
	}
}

// FallbackDiagnose applies the threshold rule and returns the degenerate
// distribution assigning all probability mass to the selected category.
func FallbackDiagnose(req *domain.PredictionRequest) (string, domain.Distribution) {
	category := ClassifyByHemoglobin(req.Hemoglobina)
	return category.String(), domain.Degenerate(category)
}

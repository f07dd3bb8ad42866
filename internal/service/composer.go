package service

import "github.com/anemia-triage-server/internal/domain"

var severityColors = map[string]domain.SeverityColor{
	domain.Normal.String():   domain.ColorGreen,
	domain.Leve.String():     domain.ColorYellow,
	domain.Moderada.String(): domain.ColorOrange,
	domain.Severa.String():   domain.ColorRed,
}

var recommendations = map[string]string{
	domain.Normal.String():   "Continue routine monitoring and balanced nutrition.",
	domain.Leve.String():     "Reinforce iron-rich diet; recheck hemoglobin in 30 days.",
	domain.Moderada.String(): "Start iron supplementation; close follow-up in 15 days.",
	domain.Severa.String():   "Refer for immediate/hospital-level care.",
}

const defaultRecommendation = "Follow clinical judgment."

// SeverityColor maps a category label to its traffic-light code. Labels the
// mapping does not know about, such as extra classifier classes, default to
// green.
func SeverityColor(category string) domain.SeverityColor {
	if color, ok := severityColors[category]; ok {
		return color
	}
	return domain.ColorGreen
}

// Recommendation maps a category label to its follow-up text, defaulting for
// unrecognized labels.
func Recommendation(category string) string {
	if text, ok := recommendations[category]; ok {
		return text
	}
	return defaultRecommendation
}

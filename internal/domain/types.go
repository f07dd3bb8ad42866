// Package domain contains the core business entities and types for childhood
// anemia triage: the four diagnosis categories used by the national anemia
// program, the traffic-light severity codes, and the probability distribution
// contract shared by the classifier and the clinical rule fallback.
package domain

// Category is a diagnosis category label. The four fixed categories follow the
// hemoglobin severity grading; a loaded classifier may expose additional
// labels of its own.
type Category string

const (
	Normal   Category = "Normal"
	Leve     Category = "Leve"
	Moderada Category = "Moderada"
	Severa   Category = "Severa"
)

// Categories returns the four fixed diagnosis categories in severity order.
func Categories() []Category {
	return []Category{Normal, Leve, Moderada, Severa}
}

// IsValid reports whether the category is one of the four fixed labels.
func (c Category) IsValid() bool {
	switch c {
	case Normal, Leve, Moderada, Severa:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// SeverityColor is the traffic-light code summarizing diagnosis urgency.
type SeverityColor string

const (
	ColorGreen  SeverityColor = "green"
	ColorYellow SeverityColor = "yellow"
	ColorOrange SeverityColor = "orange"
	ColorRed    SeverityColor = "red"
)

func (s SeverityColor) String() string {
	return string(s)
}

// Distribution maps a category label to its predicted probability.
type Distribution map[string]float64

// Sum returns the total probability mass of the distribution.
func (d Distribution) Sum() float64 {
	var total float64
	for _, p := range d {
		total += p
	}
	return total
}

// Degenerate builds a distribution over the four fixed categories assigning
// all probability mass to the given category.
func Degenerate(c Category) Distribution {
	dist := make(Distribution, 4)
	for _, cat := range Categories() {
		dist[cat.String()] = 0
	}
	dist[c.String()] = 1
	return dist
}

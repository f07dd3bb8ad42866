// Package model loads and serves the pre-trained anemia classification
// pipeline. The artifact is a portable JSON export of a multinomial logistic
// regression: class labels, per-feature standardization, one-hot vocabularies
// for the categorical inputs, and the coefficient matrix. The engine consumes
// it opaquely through the domain.Classifier interface.
package model

import (
	"fmt"
	"strconv"
)

// NumericFeature describes one standardized numeric input column.
type NumericFeature struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CategoricalFeature describes one one-hot encoded input column. Values
// outside the vocabulary encode to an all-zero block.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Vocabulary []string `json:"vocabulary"`
}

// Artifact is the in-memory form of a loaded classification pipeline.
// Coefficients has one row per class; each row spans the numeric features
// followed by the expanded categorical vocabularies, in declaration order.
type Artifact struct {
	SchemaVersion int
	Classes       []string
	Numeric       []NumericFeature
	Categorical   []CategoricalFeature
	Coefficients  [][]float64
	Intercepts    []float64
}

// featureDim returns the length of the encoded feature vector.
func (a *Artifact) featureDim() int {
	dim := len(a.Numeric)
	for _, cf := range a.Categorical {
		dim += len(cf.Vocabulary)
	}
	return dim
}

// validate checks structural consistency between classes, intercepts and the
// coefficient matrix so that inference can never index out of range.
func (a *Artifact) validate() error {
	if len(a.Intercepts) == 0 {
		return fmt.Errorf("artifact declares no classes")
	}
	if len(a.Coefficients) != len(a.Intercepts) {
		return fmt.Errorf("coefficient rows (%d) do not match intercepts (%d)",
			len(a.Coefficients), len(a.Intercepts))
	}
	if len(a.Classes) > 0 && len(a.Classes) != len(a.Intercepts) {
		return fmt.Errorf("class labels (%d) do not match intercepts (%d)",
			len(a.Classes), len(a.Intercepts))
	}
	dim := a.featureDim()
	for i, row := range a.Coefficients {
		if len(row) != dim {
			return fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), dim)
		}
	}
	return nil
}

// labels returns the artifact's class labels, falling back to stringified
// positional indices when the export carried none.
func (a *Artifact) labels() []string {
	if len(a.Classes) > 0 {
		out := make([]string, len(a.Classes))
		copy(out, a.Classes)
		return out
	}
	out := make([]string, len(a.Intercepts))
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

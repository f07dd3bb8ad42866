package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

// decoder deserializes one schema version of the artifact file.
type decoder func(data []byte) (*Artifact, error)

// decoders registers one compatibility shim per artifact schema version.
// Version 1 exports (scale stored as variance) are upgraded on load; the
// current exporter writes version 2.
var decoders = map[int]decoder{
	1: decodeV1,
	2: decodeV2,
}

const currentSchemaVersion = 2

// Load reads the classifier artifact from path. An absent file is not an
// error: it returns (nil, nil) and the caller must route to the rule
// fallback. A file that exists but cannot be decoded is a
// *domain.ModelLoadError and must abort startup.
func Load(path string, logger *logrus.Logger) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.WithField("path", path).Info("No classifier artifact found, rule fallback will be used")
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ModelLoadError{Path: path, Err: err}
	}

	version, err := peekSchemaVersion(data)
	if err != nil {
		return nil, &domain.ModelLoadError{Path: path, Err: err}
	}

	decode, ok := decoders[version]
	if !ok {
		return nil, &domain.ModelLoadError{
			Path: path,
			Err:  fmt.Errorf("unsupported artifact schema version %d", version),
		}
	}

	artifact, err := decode(data)
	if err != nil {
		return nil, &domain.ModelLoadError{Path: path, Err: err}
	}
	if err := artifact.validate(); err != nil {
		return nil, &domain.ModelLoadError{Path: path, Err: err}
	}

	logger.WithFields(logrus.Fields{
		"path":           path,
		"schema_version": version,
		"classes":        artifact.labels(),
	}).Info("Loaded classifier artifact")

	return artifact, nil
}

// peekSchemaVersion reads only the version field so the matching decoder can
// handle the rest of the document. Artifacts that predate the field are
// treated as version 1.
func peekSchemaVersion(data []byte) (int, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return 0, fmt.Errorf("malformed artifact: %w", err)
	}
	if header.SchemaVersion == 0 {
		return 1, nil
	}
	return header.SchemaVersion, nil
}

type artifactV2 struct {
	SchemaVersion int                  `json:"schema_version"`
	Classes       []string             `json:"classes"`
	Numeric       []NumericFeature     `json:"numeric_features"`
	Categorical   []CategoricalFeature `json:"categorical_features"`
	Coefficients  [][]float64          `json:"coefficients"`
	Intercepts    []float64            `json:"intercepts"`
}

func decodeV2(data []byte) (*Artifact, error) {
	var doc artifactV2
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed v2 artifact: %w", err)
	}
	return &Artifact{
		SchemaVersion: currentSchemaVersion,
		Classes:       doc.Classes,
		Numeric:       doc.Numeric,
		Categorical:   doc.Categorical,
		Coefficients:  doc.Coefficients,
		Intercepts:    doc.Intercepts,
	}, nil
}

// numericFeatureV1 carries standardization as variance, not std.
type numericFeatureV1 struct {
	Name     string  `json:"name"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

type artifactV1 struct {
	Classes      []string             `json:"classes"`
	Numeric      []numericFeatureV1   `json:"numeric_features"`
	Categorical  []CategoricalFeature `json:"categorical_features"`
	Coefficients [][]float64          `json:"coefficients"`
	Intercepts   []float64            `json:"intercepts"`
}

func decodeV1(data []byte) (*Artifact, error) {
	var doc artifactV1
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed v1 artifact: %w", err)
	}
	numeric := make([]NumericFeature, len(doc.Numeric))
	for i, nf := range doc.Numeric {
		numeric[i] = NumericFeature{
			Name: nf.Name,
			Mean: nf.Mean,
			Std:  math.Sqrt(nf.Variance),
		}
	}
	return &Artifact{
		SchemaVersion: currentSchemaVersion,
		Classes:       doc.Classes,
		Numeric:       numeric,
		Categorical:   doc.Categorical,
		Coefficients:  doc.Coefficients,
		Intercepts:    doc.Intercepts,
	}, nil
}

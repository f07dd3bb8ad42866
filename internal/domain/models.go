package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// PredictionRequest carries one point-of-care measurement submitted by a
// community health worker. Field names match the wire contract consumed by
// the existing frontends, so they stay in Spanish and UpperCamel as-is.
type PredictionRequest struct {
	EdadMeses      int     `json:"EdadMeses" mapstructure:"EdadMeses" binding:"min=0,max=60" validate:"min=0,max=60"`
	Hemoglobina    float64 `json:"Hemoglobina" mapstructure:"Hemoglobina" binding:"min=0,max=20" validate:"min=0,max=20"`
	AlturaREN      float64 `json:"AlturaREN" mapstructure:"AlturaREN" binding:"min=0,max=6000" validate:"min=0,max=6000"`
	Diresa         string  `json:"Diresa" mapstructure:"Diresa" binding:"required" validate:"required"`
	Consejeria     int     `json:"Consejeria" mapstructure:"Consejeria" binding:"min=0,max=1" validate:"min=0,max=1"`
	Suplementacion int     `json:"Suplementacion" mapstructure:"Suplementacion" binding:"min=0,max=1" validate:"min=0,max=1"`
	Sexo           string  `json:"Sexo" mapstructure:"Sexo" binding:"required" validate:"required"`
	Cred           int     `json:"Cred" mapstructure:"Cred" binding:"min=0,max=1" validate:"min=0,max=1"`
}

var validate = validator.New()

// Validate checks the closed numeric ranges and required fields. The HTTP
// layer enforces the same constraints through binding tags; this method
// covers callers that construct requests directly.
func (r *PredictionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid prediction request: %w", err)
	}
	return nil
}

// DiagnosisResult is the engine's uniform output for one request, regardless
// of whether the classifier or the rule fallback produced it.
type DiagnosisResult struct {
	Category       string
	Probabilities  Distribution
	SeverityColor  SeverityColor
	Recommendation string
}

// HistoryRecord is one persisted decision. It is the only entity that
// outlives a request; column names mirror the history log schema.
type HistoryRecord struct {
	Fecha              string  `json:"fecha"`
	EdadMeses          int     `json:"EdadMeses"`
	Hemoglobina        float64 `json:"Hemoglobina"`
	AlturaREN          float64 `json:"AlturaREN"`
	Diresa             string  `json:"Diresa"`
	Consejeria         int     `json:"Consejeria"`
	Suplementacion     int     `json:"Suplementacion"`
	Sexo               string  `json:"Sexo"`
	Cred               int     `json:"Cred"`
	DxPredicho         string  `json:"dx_predicho"`
	ProbabilidadesJSON string  `json:"probabilidades_json"`
}

// NewHistoryRecord builds the audit record for a computed diagnosis,
// timestamped in UTC.
func NewHistoryRecord(now time.Time, req *PredictionRequest, result *DiagnosisResult) (*HistoryRecord, error) {
	probs, err := json.Marshal(result.Probabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode probabilities: %w", err)
	}
	return &HistoryRecord{
		Fecha:              now.UTC().Format(time.RFC3339),
		EdadMeses:          req.EdadMeses,
		Hemoglobina:        req.Hemoglobina,
		AlturaREN:          req.AlturaREN,
		Diresa:             req.Diresa,
		Consejeria:         req.Consejeria,
		Suplementacion:     req.Suplementacion,
		Sexo:               req.Sexo,
		Cred:               req.Cred,
		DxPredicho:         result.Category,
		ProbabilidadesJSON: string(probs),
	}, nil
}

// Probabilities decodes the serialized distribution stored with the record.
func (r *HistoryRecord) Probabilities() (Distribution, error) {
	var dist Distribution
	if err := json.Unmarshal([]byte(r.ProbabilidadesJSON), &dist); err != nil {
		return nil, fmt.Errorf("failed to decode probabilities: %w", err)
	}
	return dist, nil
}

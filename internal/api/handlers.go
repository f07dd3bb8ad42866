package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

const defaultHistoryLimit = 200

// predictResponse is the wire shape of a triage decision. Field names are
// the contract consumed by the existing frontends.
type predictResponse struct {
	DxPredicho     string              `json:"dx_predicho"`
	Semaforo       string              `json:"semáforo"`
	Probabilidades domain.Distribution `json:"probabilidades"`
	Recomendacion  string              `json:"recomendacion"`
	Saved          bool                `json:"saved"`
	Error          string              `json:"error,omitempty"`
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePredict validates the measurement, runs the diagnosis engine and
// appends the decision to the history log. Every 500 uses the
// predictResponse envelope: an inference failure carries only the error,
// while an append failure after a successful diagnosis still carries the
// computed result with saved=false.
func (s *Server) handlePredict(c *gin.Context) {
	var req domain.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := s.engine.Diagnose(c.Request.Context(), &req)
	if err != nil {
		s.logger.WithError(err).Error("Prediction failed")
		c.JSON(http.StatusInternalServerError, predictResponse{Saved: false, Error: err.Error()})
		return
	}

	record, err := domain.NewHistoryRecord(time.Now(), &req, result)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build history record")
		c.JSON(http.StatusInternalServerError, predictResponse{Saved: false, Error: err.Error()})
		return
	}

	if err := s.store.Append(c.Request.Context(), record); err != nil {
		s.logger.WithError(err).Error("Failed to persist decision")
		c.JSON(http.StatusInternalServerError, predictResponse{
			DxPredicho:     result.Category,
			Semaforo:       result.SeverityColor.String(),
			Probabilidades: result.Probabilities,
			Recomendacion:  result.Recommendation,
			Saved:          false,
			Error:          err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		DxPredicho:     result.Category,
		Semaforo:       result.SeverityColor.String(),
		Probabilidades: result.Probabilities,
		Recomendacion:  result.Recommendation,
		Saved:          true,
	})
}

// handleHistory returns the most recent decisions, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := s.query.Recent(c.Request.Context(), limit)
	if err != nil {
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) {
			s.logger.WithError(err).Error("History read failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.WithFields(logrus.Fields{
		"limit":    limit,
		"returned": len(records),
	}).Debug("History request served")

	c.JSON(http.StatusOK, records)
}

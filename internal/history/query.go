package history

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

// QueryService answers recent-N queries over the history log. It reads
// without taking the store's write lock, so it may observe a log mid-growth
// but never a partial row.
type QueryService struct {
	store  domain.HistoryStore
	logger *logrus.Logger
}

// NewQueryService creates a query service over the given store.
func NewQueryService(store domain.HistoryStore, logger *logrus.Logger) *QueryService {
	return &QueryService{store: store, logger: logger}
}

// Recent returns at most limit records, newest first by timestamp. Ties and
// unparseable timestamps keep append order. limit values below 1 are clamped
// to 1.
func (q *QueryService) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit < 1 {
		limit = 1
	}

	records, err := q.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	// Timestamps are RFC 3339 in UTC, so lexicographic order is
	// chronological order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Fecha > records[j].Fecha
	})

	if len(records) > limit {
		records = records[:limit]
	}

	q.logger.WithFields(logrus.Fields{
		"limit":    limit,
		"returned": len(records),
	}).Debug("History query served")

	return records, nil
}

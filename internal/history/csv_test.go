package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anemia-triage-server/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *CSVStore {
	t.Helper()
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "history.csv"), newTestLogger())
	require.NoError(t, err)
	return store
}

func testRecord(ts time.Time, category string) *domain.HistoryRecord {
	probs, _ := json.Marshal(domain.Degenerate(domain.Category(category)))
	return &domain.HistoryRecord{
		Fecha:              ts.UTC().Format(time.RFC3339),
		EdadMeses:          24,
		Hemoglobina:        6.5,
		AlturaREN:          2500,
		Diresa:             "X",
		Consejeria:         1,
		Suplementacion:     0,
		Sexo:               "F",
		Cred:               1,
		DxPredicho:         category,
		ProbabilidadesJSON: string(probs),
	}
}

func TestReadAll_EmptyLogReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)

	// The lazy read must have created the log with its header row.
	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(columns, ","), strings.TrimSpace(string(data)))
}

func TestAppend_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := testRecord(time.Now(), "Severa")
	require.NoError(t, store.Append(ctx, original))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, *original, records[0])

	dist, err := records[0].Probabilities()
	require.NoError(t, err)
	assert.Equal(t, 1.0, dist["Severa"])
	assert.InDelta(t, 1.0, dist.Sum(), 1e-6)
}

func TestAppend_PreservesAppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := testRecord(base.Add(time.Duration(i)*time.Minute), "Normal")
		rec.EdadMeses = i
		require.NoError(t, store.Append(ctx, rec))
	}

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, i, rec.EdadMeses)
	}
}

func TestAppend_ConcurrentWritersYieldIntactRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const writers = 32

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testRecord(time.Now(), "Moderada")
			rec.Diresa = fmt.Sprintf("REGION-%02d", i)
			assert.NoError(t, store.Append(ctx, rec))
		}(i)
	}
	wg.Wait()

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, writers)

	seen := make(map[string]bool, writers)
	for _, rec := range records {
		assert.Equal(t, "Moderada", rec.DxPredicho)
		_, err := rec.Probabilities()
		assert.NoError(t, err, "row for %s should not be truncated", rec.Diresa)
		seen[rec.Diresa] = true
	}
	assert.Len(t, seen, writers)
}

func TestQueryService_RecentNewestFirst(t *testing.T) {
	store := newTestStore(t)
	query := NewQueryService(store, newTestLogger())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, testRecord(base.Add(time.Duration(i)*time.Hour), "Leve")))
	}

	records, err := query.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i-1].Fecha, records[i].Fecha)
	}
	assert.Equal(t, base.Add(3*time.Hour).Format(time.RFC3339), records[0].Fecha)
}

func TestQueryService_LimitTruncatesToMostRecent(t *testing.T) {
	store := newTestStore(t)
	query := NewQueryService(store, newTestLogger())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		require.NoError(t, store.Append(ctx, testRecord(base.Add(time.Duration(i)*time.Hour), "Normal")))
	}

	records, err := query.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, base.Add(5*time.Hour).Format(time.RFC3339), records[0].Fecha)
	assert.Equal(t, base.Add(4*time.Hour).Format(time.RFC3339), records[1].Fecha)
}

func TestQueryService_EmptyLogNeverFails(t *testing.T) {
	store := newTestStore(t)
	query := NewQueryService(store, newTestLogger())

	records, err := query.Recent(context.Background(), 200)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryService_ClampsLimitBelowOne(t *testing.T) {
	store := newTestStore(t)
	query := NewQueryService(store, newTestLogger())
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testRecord(time.Now(), "Normal")))
	require.NoError(t, store.Append(ctx, testRecord(time.Now().Add(time.Second), "Leve")))

	records, err := query.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAppend_StorageErrorOnUnwritableLog(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(filepath.Join(dir, "history.csv"), newTestLogger())
	require.NoError(t, err)

	// A directory at the log path makes both init and append fail.
	require.NoError(t, os.Mkdir(store.path, 0o755))

	err = store.Append(context.Background(), testRecord(time.Now(), "Severa"))

	require.Error(t, err)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
}

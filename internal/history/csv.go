// Package history persists every diagnosis decision to an append-only CSV
// log and serves recent-N queries over it. Appends are serialized by a
// process-wide mutex and flushed to disk before returning; reads are full
// scans that never block writers.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/domain"
)

// columns is the fixed log schema, written as the header row on creation.
var columns = []string{
	"fecha",
	"EdadMeses",
	"Hemoglobina",
	"AlturaREN",
	"Diresa",
	"Consejeria",
	"Suplementacion",
	"Sexo",
	"Cred",
	"dx_predicho",
	"probabilidades_json",
}

// CSVStore implements domain.HistoryStore over a flat CSV file.
type CSVStore struct {
	path   string
	logger *logrus.Logger

	// mu serializes appends; it is never held across reads.
	mu sync.Mutex
}

// NewCSVStore creates the store and its parent directory. The log file
// itself is created lazily with its header row on first use.
func NewCSVStore(path string, logger *logrus.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	return &CSVStore{path: path, logger: logger}, nil
}

// ensureHeader creates the log file with its column header if it does not
// exist or is empty. Callers must hold mu when a concurrent append is
// possible.
func (s *CSVStore) ensureHeader() error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}

	s.logger.WithField("path", s.path).Info("Initialized history log")
	return nil
}

// Append durably writes one record. The row is flushed and fsynced before
// the mutex is released, so a reader can never observe a partial row.
func (s *CSVStore) Append(ctx context.Context, record *domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureHeader(); err != nil {
		return &domain.StorageError{Op: "init", Err: err}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordToRow(record)); err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &domain.StorageError{Op: "append", Err: err}
	}
	return nil
}

// ReadAll scans the whole log in append order, lazily creating an absent
// log so that reads never fail on a fresh deployment.
func (s *CSVStore) ReadAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		initErr := s.ensureHeader()
		s.mu.Unlock()
		if initErr != nil {
			return nil, &domain.StorageError{Op: "init", Err: initErr}
		}
		return []domain.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(columns)

	records := []domain.HistoryRecord{}
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.StorageError{Op: "read", Err: err}
		}
		if header {
			header = false
			continue
		}
		record, err := rowToRecord(row)
		if err != nil {
			return nil, &domain.StorageError{Op: "read", Err: err}
		}
		records = append(records, *record)
	}
	return records, nil
}

func recordToRow(r *domain.HistoryRecord) []string {
	return []string{
		r.Fecha,
		strconv.Itoa(r.EdadMeses),
		strconv.FormatFloat(r.Hemoglobina, 'g', -1, 64),
		strconv.FormatFloat(r.AlturaREN, 'g', -1, 64),
		r.Diresa,
		strconv.Itoa(r.Consejeria),
		strconv.Itoa(r.Suplementacion),
		r.Sexo,
		strconv.Itoa(r.Cred),
		r.DxPredicho,
		r.ProbabilidadesJSON,
	}
}

func rowToRecord(row []string) (*domain.HistoryRecord, error) {
	edad, err := strconv.Atoi(row[1])
	if err != nil {
		return nil, fmt.Errorf("bad EdadMeses %q: %w", row[1], err)
	}
	hemoglobina, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return nil, fmt.Errorf("bad Hemoglobina %q: %w", row[2], err)
	}
	altura, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bad AlturaREN %q: %w", row[3], err)
	}
	consejeria, err := strconv.Atoi(row[5])
	if err != nil {
		return nil, fmt.Errorf("bad Consejeria %q: %w", row[5], err)
	}
	suplementacion, err := strconv.Atoi(row[6])
	if err != nil {
		return nil, fmt.Errorf("bad Suplementacion %q: %w", row[6], err)
	}
	cred, err := strconv.Atoi(row[8])
	if err != nil {
		return nil, fmt.Errorf("bad Cred %q: %w", row[8], err)
	}
	return &domain.HistoryRecord{
		Fecha:              row[0],
		EdadMeses:          edad,
		Hemoglobina:        hemoglobina,
		AlturaREN:          altura,
		Diresa:             row[4],
		Consejeria:         consejeria,
		Suplementacion:     suplementacion,
		Sexo:               row[7],
		Cred:               cred,
		DxPredicho:         row[9],
		ProbabilidadesJSON: row[10],
	}, nil
}

package harness

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Medtwin-ai/rubric-gates/pkg/certificate"
)

// Store indexes issued certificates in SQLite so runs can be queried after
// the fact without re-reading thousands of JSON files. The store is owned by
// the harness, not the engine: evaluation itself never touches storage.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS certificates (
	certificate_id TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	dataset_id     TEXT NOT NULL,
	decision       TEXT NOT NULL,
	issued_at      TEXT NOT NULL,
	integrity_hash TEXT NOT NULL,
	body           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_certificates_run ON certificates(run_id, dataset_id);
`

// OpenStore opens (and if needed initializes) a certificate store at path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing database handle. The schema must already
// be in place; used by tests.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one issued certificate.
func (s *Store) Insert(runID, datasetID string, cert *certificate.Certificate) error {
	body, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("store: marshal certificate: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO certificates (certificate_id, run_id, dataset_id, decision, issued_at, integrity_hash, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cert.CertificateID, runID, datasetID, string(cert.Decision.Overall),
		cert.IssuedAt, cert.IntegrityHash, string(body),
	)
	if err != nil {
		return fmt.Errorf("store: insert certificate %s: %w", cert.CertificateID, err)
	}
	return nil
}

// Get loads a certificate by id.
func (s *Store) Get(certificateID string) (*certificate.Certificate, error) {
	var body string
	err := s.db.QueryRow(
		`SELECT body FROM certificates WHERE certificate_id = ?`, certificateID,
	).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("store: get certificate %s: %w", certificateID, err)
	}
	var cert certificate.Certificate
	if err := json.Unmarshal([]byte(body), &cert); err != nil {
		return nil, fmt.Errorf("store: decode certificate %s: %w", certificateID, err)
	}
	return &cert, nil
}

// DecisionCounts returns per-decision certificate counts for a run.
func (s *Store) DecisionCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT decision, COUNT(*) FROM certificates WHERE run_id = ? GROUP BY decision`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: decision counts for %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("store: scan counts: %w", err)
		}
		counts[decision] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate counts: %w", err)
	}
	return counts, nil
}

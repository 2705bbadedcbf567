package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sanad/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// FormatVersion is the on-disk index format this build reads and writes.
const FormatVersion = 1

// DBFileName is the index database file inside the index directory.
const DBFileName = "index.db"

const (
	metaFormatVersion = "format_version"
	metaModel         = "embedding_model"
	metaDimensions    = "embedding_dimensions"
)

// ErrReadOnly indicates a write through a read-only handle.
var ErrReadOnly = errors.New("index opened read-only")

// Verify interface compliance.
var _ driven.UnitStore = (*Store)(nil)

// Store is the SQLite-backed embedding index.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// NewStore opens the index in dataDir read-write, creating it if needed.
// If dataDir is empty, defaults to ~/.sanad/index.
func NewStore(dataDir string) (*Store, error) {
	dataDir, err := resolveDir(dataDir)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serialises writers within the ingestion process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.initFormat(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing index in dataDir for queries.
// Fails with domain.ErrIndexNotFound when the database does not exist and
// with domain.ErrIndexVersion when its format is not FormatVersion.
func OpenReadOnly(dataDir string) (*Store, error) {
	dataDir, err := resolveDir(dataDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run `sanad ingest` first)", domain.ErrIndexNotFound, dbPath)
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, readOnly: true}
	if err := s.checkFormat(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func resolveDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sanad", "index"), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ReadOnly reports whether the handle rejects writes.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// initFormat records FormatVersion on a fresh index and checks it otherwise.
func (s *Store) initFormat(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO index_meta (key, value) VALUES (?, ?)",
		metaFormatVersion, strconv.Itoa(FormatVersion))
	if err != nil {
		return fmt.Errorf("writing format version: %w", err)
	}
	return s.checkFormat(ctx)
}

func (s *Store) checkFormat(ctx context.Context) error {
	v, err := s.meta(ctx, metaFormatVersion)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no format version recorded", domain.ErrIndexVersion)
		}
		return err
	}
	if v != strconv.Itoa(FormatVersion) {
		return fmt.Errorf("%w: found %s, want %d", domain.ErrIndexVersion, v, FormatVersion)
	}
	return nil
}

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		// A database without index_meta was not written by this store.
		if strings.Contains(err.Error(), "no such table") {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// ==================== Units ====================

// Upsert writes units keyed by (filename, page), pinning fp in the same transaction.
func (s *Store) Upsert(ctx context.Context, fp domain.EmbeddingFingerprint, units []domain.TextUnit) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.upsertTx(ctx, tx, fp, units)
	})
}

// ReplaceDocument removes every unit of filename and writes units in one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, fp domain.EmbeddingFingerprint, filename string, units []domain.TextUnit) error {
	if s.readOnly {
		return ErrReadOnly
	}
	for _, u := range units {
		if u.Filename != filename {
			return fmt.Errorf("%w: unit %s does not belong to %s", domain.ErrInvalidInput, u.Key(), filename)
		}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM units WHERE filename = ?", filename); err != nil {
			return fmt.Errorf("deleting units of %s: %w", filename, err)
		}
		return s.upsertTx(ctx, tx, fp, units)
	})
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, want domain.EmbeddingFingerprint, units []domain.TextUnit) error {
	if len(units) == 0 {
		want = domain.EmbeddingFingerprint{}
	}
	fp, err := s.pinTx(ctx, tx, want)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO units (id, filename, page_number, text, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename, page_number) DO UPDATE SET
			id = excluded.id,
			text = excluded.text,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, u := range units {
		if err := validateUnit(u, fp); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, u.ID, u.Filename, u.PageNumber, u.Text,
			float32SliceToBytes(u.Embedding), now); err != nil {
			return fmt.Errorf("saving unit %s: %w", u.Key(), err)
		}
	}
	return nil
}

func validateUnit(u domain.TextUnit, fp domain.EmbeddingFingerprint) error {
	switch {
	case u.ID == "" || u.Filename == "":
		return fmt.Errorf("%w: unit %s has no id or filename", domain.ErrInvalidInput, u.Key())
	case u.PageNumber < 1:
		return fmt.Errorf("%w: unit %s has page < 1", domain.ErrInvalidInput, u.Key())
	case len(u.Embedding) == 0:
		return fmt.Errorf("%w: unit %s has no embedding", domain.ErrInvalidInput, u.Key())
	case fp.Dimensions > 0 && len(u.Embedding) != fp.Dimensions:
		return fmt.Errorf("%w: unit %s has %d dimensions, index has %d",
			domain.ErrEmbeddingMismatch, u.Key(), len(u.Embedding), fp.Dimensions)
	}
	return nil
}

// Get returns the unit stored for key.
func (s *Store) Get(ctx context.Context, key domain.UnitKey) (*domain.TextUnit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, page_number, text, embedding
		FROM units WHERE filename = ? AND page_number = ?
	`, key.Filename, key.PageNumber)

	var u domain.TextUnit
	var blob []byte
	err := row.Scan(&u.ID, &u.Filename, &u.PageNumber, &u.Text, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting unit %s: %w", key, err)
	}
	u.Embedding = bytesToFloat32Slice(blob)
	return &u, nil
}

// Search scores every unit against query and returns the k best.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]domain.EvidenceUnit, error) {
	if k <= 0 || len(query) == 0 {
		return []domain.EvidenceUnit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, filename, page_number, text, embedding FROM units")
	if err != nil {
		return nil, fmt.Errorf("scanning units: %w", err)
	}
	defer rows.Close()

	results := make([]domain.EvidenceUnit, 0, k)
	for rows.Next() {
		var u domain.TextUnit
		var blob []byte
		if err := rows.Scan(&u.ID, &u.Filename, &u.PageNumber, &u.Text, &blob); err != nil {
			return nil, fmt.Errorf("reading unit: %w", err)
		}
		score := domain.CosineSimilarity(query, bytesToFloat32Slice(blob))
		results = append(results, domain.EvidenceUnit{Unit: u, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}

	domain.SortEvidence(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ==================== Fingerprint ====================

// Fingerprint returns the pinned embedding identity.
func (s *Store) Fingerprint(ctx context.Context) (domain.EmbeddingFingerprint, error) {
	return s.fingerprintTx(ctx, s.db)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) fingerprintTx(ctx context.Context, q querier) (domain.EmbeddingFingerprint, error) {
	var fp domain.EmbeddingFingerprint
	var model, dims sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT value FROM index_meta WHERE key = ?),
			(SELECT value FROM index_meta WHERE key = ?)
	`, metaModel, metaDimensions).Scan(&model, &dims)
	if err != nil {
		return fp, fmt.Errorf("reading fingerprint: %w", err)
	}

	fp.Model = model.String
	if dims.Valid {
		n, err := strconv.Atoi(dims.String)
		if err != nil {
			return fp, fmt.Errorf("%w: bad dimensions %q", domain.ErrIndexVersion, dims.String)
		}
		fp.Dimensions = n
	}
	return fp, nil
}

// pinTx checks want against the pinned identity and pins it when nothing is
// pinned. It returns the identity units must match; a zero want only reads.
func (s *Store) pinTx(ctx context.Context, tx *sql.Tx, want domain.EmbeddingFingerprint) (domain.EmbeddingFingerprint, error) {
	current, err := s.fingerprintTx(ctx, tx)
	if err != nil {
		return current, err
	}
	if want.IsZero() {
		return current, nil
	}
	if want.Model == "" || want.Dimensions < 1 {
		return current, fmt.Errorf("%w: incomplete embedding fingerprint %s", domain.ErrInvalidInput, want)
	}
	if !current.IsZero() {
		if current != want {
			return current, fmt.Errorf("%w: index built with %s, got %s", domain.ErrEmbeddingMismatch, current, want)
		}
		return current, nil
	}
	for key, value := range map[string]string{
		metaModel:      want.Model,
		metaDimensions: strconv.Itoa(want.Dimensions),
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return current, fmt.Errorf("pinning fingerprint: %w", err)
		}
	}
	return want, nil
}

// ==================== Maintenance ====================

// Stats summarises the index.
func (s *Store) Stats(ctx context.Context) (domain.IndexStats, error) {
	var st domain.IndexStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT filename) FROM units").Scan(&st.Units, &st.Documents)
	if err != nil {
		return st, fmt.Errorf("counting units: %w", err)
	}
	st.Fingerprint, err = s.Fingerprint(ctx)
	return st, err
}

// Reset removes every unit and the pinned fingerprint.
func (s *Store) Reset(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM units"); err != nil {
			return fmt.Errorf("clearing units: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta WHERE key IN (?, ?)", metaModel, metaDimensions); err != nil {
			return fmt.Errorf("clearing fingerprint: %w", err)
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

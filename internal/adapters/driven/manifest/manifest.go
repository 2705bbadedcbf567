// Package manifest reads and extends the filename,url source manifest.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SourceResolver = (*Manifest)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Manifest is an immutable, validated filename to URL mapping.
type Manifest struct {
	path    string
	records []domain.SourceRecord
	byName  map[string]string
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse reads a manifest from r. The header must be exactly filename,url
// (case and surrounding whitespace are ignored) and every row must have two
// non-empty columns with an absolute http(s) URL.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", domain.ErrManifestFormat)
	}
	if err != nil {
		return nil, csvError(err)
	}
	if !isHeader(header) {
		return nil, fmt.Errorf("%w: header must be \"filename,url\", got %q",
			domain.ErrManifestFormat, strings.Join(header, ","))
	}

	m := &Manifest{byName: make(map[string]string)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		key := domain.NormaliseFilename(rec.Filename)
		if _, dup := m.byName[key]; dup {
			return nil, fmt.Errorf("line %d: %w: %s", line, domain.ErrDuplicateSource, rec.Filename)
		}
		m.byName[key] = rec.URL
		m.records = append(m.records, rec)
	}
	return m, nil
}

func isHeader(cols []string) bool {
	return len(cols) == 2 &&
		strings.ToLower(strings.TrimSpace(cols[0])) == "filename" &&
		strings.ToLower(strings.TrimSpace(cols[1])) == "url"
}

func parseRow(row []string) (domain.SourceRecord, error) {
	rec := domain.SourceRecord{
		Filename: strings.TrimSpace(row[0]),
		URL:      strings.TrimSpace(row[1]),
	}
	if rec.Filename == "" {
		return rec, fmt.Errorf("%w: empty filename", domain.ErrManifestFormat)
	}
	if rec.URL == "" {
		return rec, fmt.Errorf("%w: empty url for %s", domain.ErrManifestFormat, rec.Filename)
	}
	u, err := url.Parse(rec.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return rec, fmt.Errorf("%w: invalid url %q for %s", domain.ErrManifestFormat, rec.URL, rec.Filename)
	}
	return rec, nil
}

// csvError maps encoding/csv failures, including wrong column counts, to ErrManifestFormat.
func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("line %d: %w: %w", perr.Line, domain.ErrManifestFormat, perr.Err)
	}
	return fmt.Errorf("%w: %w", domain.ErrManifestFormat, err)
}

// Resolve returns the URL for filename.
func (m *Manifest) Resolve(filename string) (string, error) {
	u, ok := m.byName[domain.NormaliseFilename(filename)]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownSource, filename)
	}
	return u, nil
}

// Records returns every record in file order.
func (m *Manifest) Records() []domain.SourceRecord {
	out := make([]domain.SourceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records.
func (m *Manifest) Len() int {
	return len(m.records)
}

// Path returns the file the manifest was loaded from, empty for Parse.
func (m *Manifest) Path() string {
	return m.path
}

// Verify interface compliance.
var _ driven.SourceRecorder = (*Recorder)(nil)

// Recorder appends crawled sources to the manifest file at a path.
type Recorder struct {
	path string
}

// NewRecorder returns a recorder for the manifest at path. The file is
// created with its header on the first Record.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record appends the records whose filename is not yet listed. The file is
// rewritten through a temporary file so a reader never sees a partial row.
func (r *Recorder) Record(records []domain.SourceRecord) (int, error) {
	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist), err == nil && len(bytes.TrimSpace(data)) == 0:
		data, err = []byte("filename,url\n"), nil
	case err != nil:
		return 0, fmt.Errorf("read manifest: %w", err)
	}

	existing, err := Parse(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", r.path, err)
	}

	var rows bytes.Buffer
	w := csv.NewWriter(&rows)
	added := 0
	for _, in := range records {
		rec, err := parseRow([]string{in.Filename, in.URL})
		if err != nil {
			return 0, err
		}
		key := domain.NormaliseFilename(rec.Filename)
		if _, listed := existing.byName[key]; listed {
			continue
		}
		existing.byName[key] = rec.URL
		if err := w.Write([]string{rec.Filename, rec.URL}); err != nil {
			return 0, fmt.Errorf("write manifest row: %w", err)
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("write manifest row: %w", err)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if err := writeFileAtomic(r.path, append(data, rows.Bytes()...)); err != nil {
		return 0, err
	}
	return added, nil
}

// Path returns the manifest file.
func (r *Recorder) Path() string {
	return r.path
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

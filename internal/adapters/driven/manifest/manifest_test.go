package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

func parse(t *testing.T, content string) (*Manifest, error) {
	t.Helper()
	return Parse(strings.NewReader(content))
}

func TestParse_ResolvesEveryRecord(t *testing.T) {
	m, err := parse(t, "filename,url\n"+
		"tawarruq.pdf,https://bnm.gov.my/tawarruq\n"+
		"hibah.pdf,https://bnm.gov.my/hibah\n")
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	for _, rec := range m.Records() {
		got, err := m.Resolve(rec.Filename)
		require.NoError(t, err)
		assert.Equal(t, rec.URL, got)
	}

	u, err := m.Resolve("tawarruq.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bnm.gov.my/tawarruq", u)
}

func TestParse_NormalisesHeaderAndKeys(t *testing.T) {
	content := "\ufeff Filename , URL \n  Tawarruq.PDF ,  https://bnm.gov.my/tawarruq  \n"

	m, err := parse(t, content)
	require.NoError(t, err)

	u, err := m.Resolve("tawarruq.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bnm.gov.my/tawarruq", u)

	u, err = m.Resolve(" TAWARRUQ.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bnm.gov.my/tawarruq", u)
}

func TestParse_PreservesFileOrder(t *testing.T) {
	m, err := parse(t, "filename,url\nz.pdf,https://x/z\na.pdf,https://x/a\nm.pdf,https://x/m\n")
	require.NoError(t, err)

	var names []string
	for _, r := range m.Records() {
		names = append(names, r.Filename)
	}
	assert.Equal(t, []string{"z.pdf", "a.pdf", "m.pdf"}, names)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"missing header", "tawarruq.pdf,https://bnm.gov.my/tawarruq\n"},
		{"wrong header", "name,link\na.pdf,https://x\n"},
		{"header with extra column", "filename,url,title\na.pdf,https://x,A\n"},
		{"row with one column", "filename,url\na.pdf\n"},
		{"row with three columns", "filename,url\na.pdf,https://x,extra\n"},
		{"empty filename", "filename,url\n,https://x\n"},
		{"empty url", "filename,url\na.pdf,\n"},
		{"relative url", "filename,url\na.pdf,/docs/a\n"},
		{"non http url", "filename,url\na.pdf,ftp://x/a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrManifestFormat)
		})
	}
}

func TestParse_DuplicateFilename(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"exact", "filename,url\na.pdf,https://x/1\na.pdf,https://x/2\n"},
		{"differs by case", "filename,url\na.pdf,https://x/1\nA.PDF,https://x/2\n"},
		{"differs by whitespace", "filename,url\na.pdf,https://x/1\n a.pdf ,https://x/2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDuplicateSource)
			assert.Contains(t, err.Error(), "line 3")
		})
	}
}

func TestResolve_UnknownSource(t *testing.T) {
	m, err := parse(t, "filename,url\na.pdf,https://x/a\n")
	require.NoError(t, err)

	u, err := m.Resolve("missing.pdf")
	assert.ErrorIs(t, err, domain.ErrUnknownSource)
	assert.Empty(t, u)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	require.NoError(t, os.WriteFile(path, []byte("filename,url\ntawarruq.pdf,https://bnm.gov.my/tawarruq\n"), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())
	assert.Equal(t, 1, m.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecords_ReturnsCopy(t *testing.T) {
	m, err := parse(t, "filename,url\na.pdf,https://x/a\n")
	require.NoError(t, err)

	recs := m.Records()
	recs[0].URL = "https://evil"

	u, err := m.Resolve("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://x/a", u)
}

func TestRecorder_CreatesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "sources.csv")
	r := NewRecorder(path)

	added, err := r.Record([]domain.SourceRecord{
		{Filename: "tawarruq.pdf", URL: "https://www.bnm.gov.my/documents/tawarruq.pdf"},
		{Filename: "hibah.pdf", URL: "https://www.bnm.gov.my/documents/hibah.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	u, err := m.Resolve("hibah.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://www.bnm.gov.my/documents/hibah.pdf", u)
}

func TestRecorder_KeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	original := "filename,url\nTawarruq.pdf,https://bnm.gov.my/curated/tawarruq"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	added, err := NewRecorder(path).Record([]domain.SourceRecord{
		{Filename: "tawarruq.pdf", URL: "https://www.bnm.gov.my/documents/tawarruq.pdf"},
		{Filename: "wadiah.pdf", URL: "https://www.bnm.gov.my/documents/wadiah.pdf"},
		{Filename: "wadiah.pdf", URL: "https://www.bnm.gov.my/other/wadiah.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), original+"\n"))

	m, err := Load(path)
	require.NoError(t, err)
	u, err := m.Resolve("tawarruq.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bnm.gov.my/curated/tawarruq", u)
	u, err = m.Resolve("wadiah.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://www.bnm.gov.my/documents/wadiah.pdf", u)
}

func TestRecorder_NothingNewLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	original := "filename,url\nhibah.pdf,https://bnm.gov.my/hibah\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	added, err := NewRecorder(path).Record([]domain.SourceRecord{{Filename: "HIBAH.pdf", URL: "https://bnm.gov.my/x.pdf"}})
	require.NoError(t, err)
	assert.Zero(t, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRecorder_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRecorder(filepath.Join(dir, "new.csv")).Record([]domain.SourceRecord{{Filename: "a.pdf", URL: "/relative/a.pdf"}})
	assert.ErrorIs(t, err, domain.ErrManifestFormat)
	assert.NoFileExists(t, filepath.Join(dir, "new.csv"))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("name,link\n"), 0o644))
	_, err = NewRecorder(bad).Record([]domain.SourceRecord{{Filename: "a.pdf", URL: "https://bnm.gov.my/a.pdf"}})
	assert.ErrorIs(t, err, domain.ErrManifestFormat)
}

package services

import (
	"path/filepath"
	"testing"

	"pdftally/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExcelExporterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	exporter := NewExcelExporter(path)

	doc := models.HistoryDocument{
		Uploads: []models.UploadRecord{
			{
				ID: "abcdef123456", Filename: "a.pdf", SavedAs: "abcdef123456_a.pdf",
				Pages: 10, Cost: 0.9524, SizeBytes: 2 * 1024 * 1024,
				Timestamp: "2024-01-15T10:30:00", Date: "2024-01-15",
			},
			{
				ID: "ffffff999999", Filename: "b.pdf", SavedAs: "ffffff999999_b.pdf",
				Pages: 5, Cost: 0.4762, SizeBytes: 512 * 1024,
				Timestamp: "2024-01-16T08:00:00", Date: "2024-01-16",
			},
		},
		Settings: models.DefaultSettings(),
	}
	require.NoError(t, exporter.Write(doc))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Upload History")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"ID", "Date", "Time", "Filename", "Pages", "Cost (EUR)", "Size (MB)"}, rows[0])
	// Gekürzte ID, Datum und Uhrzeit getrennt
	assert.Equal(t, "abcdef12", rows[1][0])
	assert.Equal(t, "2024-01-15", rows[1][1])
	assert.Equal(t, "10:30:00", rows[1][2])
	assert.Equal(t, "a.pdf", rows[1][3])
	assert.Equal(t, "10", rows[1][4])
	assert.Equal(t, "2", rows[1][6])

	daily, err := f.GetRows("Daily Summary")
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, []string{"Date", "Files", "Pages", "Cost (EUR)"}, daily[0])
	// Datumsabsteigend: der 16. vor dem 15.
	assert.Equal(t, "2024-01-16", daily[1][0])
	assert.Equal(t, "2024-01-15", daily[2][0])
}

func TestExcelExporterWriteEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	exporter := NewExcelExporter(path)

	require.NoError(t, exporter.Write(models.HistoryDocument{Settings: models.DefaultSettings()}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Upload History")
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header row")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdef12", shortID("abcdef123456"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestRoundMB(t *testing.T) {
	assert.Equal(t, 2.0, roundMB(2*1024*1024))
	assert.Equal(t, 0.5, roundMB(512*1024))
	assert.Equal(t, 0.0, roundMB(100))
}

package services

import (
	"testing"
	"time"

	"pdftally/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, ts, filename string, pages int, cost float64) models.UploadRecord {
	return models.UploadRecord{
		ID:        id,
		Filename:  filename,
		SavedAs:   id + "_" + filename,
		Pages:     pages,
		Cost:      cost,
		Timestamp: ts,
		Date:      ts[:10],
	}
}

func TestDailySummaries(t *testing.T) {
	// Drei Uploads am selben Tag mit Rate 0.1: {files:3, pages:35, cost:3.5}
	records := []models.UploadRecord{
		record("a1", "2024-01-15T09:00:00", "a.pdf", 10, 1.0),
		record("a2", "2024-01-15T12:30:00", "b.pdf", 20, 2.0),
		record("a3", "2024-01-15T17:45:00", "c.pdf", 5, 0.5),
		record("b1", "2024-01-14T08:00:00", "d.pdf", 7, 0.7),
	}

	days := DailySummaries(records)
	require.Len(t, days, 2)

	// Datumsabsteigend sortiert
	assert.Equal(t, "2024-01-15", days[0].Date)
	assert.Equal(t, 3, days[0].Files)
	assert.Equal(t, 35, days[0].Pages)
	assert.Equal(t, 3.5, days[0].Cost)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.pdf"}, days[0].Filenames)

	assert.Equal(t, "2024-01-14", days[1].Date)
	assert.Equal(t, 1, days[1].Files)
}

func TestMonthlySummaries(t *testing.T) {
	records := []models.UploadRecord{
		record("a1", "2024-02-01T09:00:00", "a.pdf", 10, 1.0),
		record("a2", "2024-02-01T10:00:00", "b.pdf", 10, 1.0),
		record("a3", "2024-02-03T09:00:00", "c.pdf", 10, 1.0),
		record("b1", "2024-01-20T09:00:00", "d.pdf", 4, 0.4),
	}

	months := MonthlySummaries(records)
	require.Len(t, months, 2)

	assert.Equal(t, "2024-02", months[0].Month)
	assert.Equal(t, 3, months[0].Files)
	assert.Equal(t, 30, months[0].Pages)
	assert.Equal(t, 3.0, months[0].Cost)
	assert.Equal(t, 2, months[0].DaysActive)

	assert.Equal(t, "2024-01", months[1].Month)
	assert.Equal(t, 1, months[1].DaysActive)
}

func TestFilterRecords(t *testing.T) {
	records := []models.UploadRecord{
		record("a1", "2024-01-10T09:00:00", "Invoice-January.pdf", 1, 0.1),
		record("a2", "2024-01-15T09:00:00", "report.pdf", 2, 0.2),
		record("a3", "2024-01-20T09:00:00", "scan.pdf", 3, 0.3),
	}

	// Inklusive Datumsgrenzen
	got := FilterRecords(records, "2024-01-10", "2024-01-15", "")
	require.Len(t, got, 2)

	// Case-insensitive Substring-Suche im Dateinamen
	got = FilterRecords(records, "", "", "INVOICE")
	require.Len(t, got, 1)
	assert.Equal(t, "Invoice-January.pdf", got[0].Filename)

	got = FilterRecords(records, "2024-01-16", "", "")
	require.Len(t, got, 1)
	assert.Equal(t, "scan.pdf", got[0].Filename)
}

func TestSortByTimestampDesc(t *testing.T) {
	records := []models.UploadRecord{
		record("a1", "2024-01-10T09:00:00", "a.pdf", 1, 0.1),
		record("a2", "2024-01-15T09:00:00", "b.pdf", 2, 0.2),
		record("a3", "2024-01-15T18:00:00", "c.pdf", 3, 0.3),
	}

	sorted := SortByTimestampDesc(records)
	assert.Equal(t, "c.pdf", sorted[0].Filename)
	assert.Equal(t, "b.pdf", sorted[1].Filename)
	assert.Equal(t, "a.pdf", sorted[2].Filename)
	// Eingabe bleibt unverändert
	assert.Equal(t, "a.pdf", records[0].Filename)
}

func TestPeriodStatistics(t *testing.T) {
	now := time.Date(2024, 3, 20, 14, 0, 0, 0, time.UTC)
	records := []models.UploadRecord{
		record("a1", "2024-03-20T09:00:00", "today.pdf", 5, 0.5),
		record("a2", "2024-03-16T09:00:00", "thisweek.pdf", 3, 0.3),
		record("a3", "2024-03-02T09:00:00", "thismonth.pdf", 2, 0.2),
		record("a4", "2024-02-10T09:00:00", "older.pdf", 10, 1.0),
	}

	stats := PeriodStatistics(records, now)

	assert.Equal(t, models.PeriodTotals{Files: 1, Pages: 5, Cost: 0.5}, stats.Today)
	assert.Equal(t, models.PeriodTotals{Files: 2, Pages: 8, Cost: 0.8}, stats.Week)
	assert.Equal(t, models.PeriodTotals{Files: 3, Pages: 10, Cost: 1.0}, stats.Month)
	assert.Equal(t, models.PeriodTotals{Files: 4, Pages: 20, Cost: 2.0}, stats.Total)
}

// Die Summe über disjunkte Datumspartitionen muss der Gesamtsumme entsprechen.
func TestPartitionConsistency(t *testing.T) {
	records := []models.UploadRecord{
		record("a1", "2024-01-05T09:00:00", "a.pdf", 3, 0.2857),
		record("a2", "2024-01-10T09:00:00", "b.pdf", 7, 0.6667),
		record("a3", "2024-01-15T09:00:00", "c.pdf", 11, 1.0476),
		record("a4", "2024-01-20T09:00:00", "d.pdf", 13, 1.2381),
	}

	fullPages, fullCost := Totals(records)

	firstHalf := FilterRecords(records, "2024-01-01", "2024-01-10", "")
	secondHalf := FilterRecords(records, "2024-01-11", "2024-01-31", "")
	require.Len(t, firstHalf, 2)
	require.Len(t, secondHalf, 2)

	p1, c1 := Totals(firstHalf)
	p2, c2 := Totals(secondHalf)

	assert.Equal(t, fullPages, p1+p2)
	assert.InDelta(t, fullCost, c1+c2, 0.0001)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 0.0952, Round4(2000.0/(700*30)))
	assert.Equal(t, 0.095238, Round6(2000.0/(700*30)))
	assert.Equal(t, 3.5, Round4(3.50004))
}

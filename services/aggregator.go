package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"pdftally/models"
)

// Die Aggregationsfunktionen sind pur: gleiche Records, gleiche Filter,
// gleiches Ergebnis. Datumsvergleiche laufen über den 10-stelligen
// Datums-Präfix des Timestamps (ISO-8601 sortiert lexikographisch korrekt).

// Round4 rounds a cost sum to 4 decimal places. Applied once at the point of
// aggregation, never cumulatively.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round6 rounds the derived cost rate for API responses.
func Round6(v float64) float64 {
	return math.Round(v*1000000) / 1000000
}

// FilterRecords applies the optional inclusive date range and the optional
// case-insensitive filename substring match.
func FilterRecords(records []models.UploadRecord, from, to, search string) []models.UploadRecord {
	search = strings.ToLower(search)
	out := make([]models.UploadRecord, 0, len(records))
	for _, r := range records {
		d := r.DateKey()
		if from != "" && d < from {
			continue
		}
		if to != "" && d > to {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Filename), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByTimestampDesc returns a copy sorted most-recent-first.
func SortByTimestampDesc(records []models.UploadRecord) []models.UploadRecord {
	out := make([]models.UploadRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Totals summiert Seiten und Kosten über die gegebenen Records.
func Totals(records []models.UploadRecord) (pages int, cost float64) {
	for _, r := range records {
		pages += r.Pages
		cost += r.Cost
	}
	return pages, Round4(cost)
}

// DailySummaries groups records by day, date-descending.
func DailySummaries(records []models.UploadRecord) []models.DailySummary {
	byDay := make(map[string]*models.DailySummary)
	for _, r := range records {
		d := r.DateKey()
		entry, ok := byDay[d]
		if !ok {
			entry = &models.DailySummary{Date: d, Filenames: []string{}}
			byDay[d] = entry
		}
		entry.Files++
		entry.Pages += r.Pages
		entry.Cost += r.Cost
		entry.Filenames = append(entry.Filenames, r.Filename)
	}

	out := make([]models.DailySummary, 0, len(byDay))
	for _, entry := range byDay {
		entry.Cost = Round4(entry.Cost)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// MonthlySummaries groups ALL records by year-month, month-descending.
// DaysActive counts distinct days with at least one upload.
func MonthlySummaries(records []models.UploadRecord) []models.MonthlySummary {
	type acc struct {
		summary models.MonthlySummary
		days    map[string]struct{}
	}
	byMonth := make(map[string]*acc)
	for _, r := range records {
		m := r.MonthKey()
		entry, ok := byMonth[m]
		if !ok {
			entry = &acc{summary: models.MonthlySummary{Month: m}, days: make(map[string]struct{})}
			byMonth[m] = entry
		}
		entry.summary.Files++
		entry.summary.Pages += r.Pages
		entry.summary.Cost += r.Cost
		entry.days[r.DateKey()] = struct{}{}
	}

	out := make([]models.MonthlySummary, 0, len(byMonth))
	for _, entry := range byMonth {
		entry.summary.Cost = Round4(entry.summary.Cost)
		entry.summary.DaysActive = len(entry.days)
		out = append(out, entry.summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// PeriodStatistics computes the four fixed windows against now:
// today (date == current date), week (date >= now-7d), month (date >= first
// of current month) and all-time.
func PeriodStatistics(records []models.UploadRecord, now time.Time) models.PeriodStats {
	today := now.Format("2006-01-02")
	weekAgo := now.AddDate(0, 0, -7).Format("2006-01-02")
	monthStart := now.Format("2006-01") + "-01"

	var stats models.PeriodStats
	var todayCost, weekCost, monthCost, totalCost float64
	for _, r := range records {
		d := r.DateKey()
		stats.Total.Files++
		stats.Total.Pages += r.Pages
		totalCost += r.Cost
		if d == today {
			stats.Today.Files++
			stats.Today.Pages += r.Pages
			todayCost += r.Cost
		}
		if d >= weekAgo {
			stats.Week.Files++
			stats.Week.Pages += r.Pages
			weekCost += r.Cost
		}
		if d >= monthStart {
			stats.Month.Files++
			stats.Month.Pages += r.Pages
			monthCost += r.Cost
		}
	}
	stats.Today.Cost = Round4(todayCost)
	stats.Week.Cost = Round4(weekCost)
	stats.Month.Cost = Round4(monthCost)
	stats.Total.Cost = Round4(totalCost)
	return stats
}

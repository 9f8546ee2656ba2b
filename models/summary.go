package models

// DailySummary aggregiert alle Uploads eines Kalendertages.
type DailySummary struct {
	Date      string   `json:"date"`
	Files     int      `json:"files"`
	Pages     int      `json:"pages"`
	Cost      float64  `json:"cost"`
	Filenames []string `json:"filenames"`
}

// MonthlySummary aggregiert alle Uploads eines Monats (YYYY-MM).
type MonthlySummary struct {
	Month      string  `json:"month"`
	Files      int     `json:"files"`
	Pages      int     `json:"pages"`
	Cost       float64 `json:"cost"`
	DaysActive int     `json:"days_active"`
}

// PeriodTotals sind die Kennzahlen eines festen Zeitfensters.
type PeriodTotals struct {
	Files int     `json:"files"`
	Pages int     `json:"pages"`
	Cost  float64 `json:"cost"`
}

// PeriodStats holds the four rolling windows computed against "now".
type PeriodStats struct {
	Today PeriodTotals `json:"today"`
	Week  PeriodTotals `json:"week"`
	Month PeriodTotals `json:"month"`
	Total PeriodTotals `json:"total"`
}

package models

// UploadRecord repräsentiert einen ingestierten PDF-Upload und dessen Kosten.
// Records are immutable after creation; cost is stamped with the rate that
// was in effect at upload time and never recomputed.
type UploadRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	SavedAs  string `json:"saved_as"`
	Pages    int    `json:"pages"`
	Cost     float64 `json:"cost"`
	SizeBytes int64  `json:"size_bytes"`

	// Timestamp is the canonical ordering and grouping key
	// ("2006-01-02T15:04:05"). Date is a redundant day-precision copy kept
	// for backward compatibility with older history documents.
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
}

// DateKey returns the day portion of the record timestamp.
func (r UploadRecord) DateKey() string {
	if len(r.Timestamp) >= 10 {
		return r.Timestamp[:10]
	}
	return r.Date
}

// MonthKey returns the YYYY-MM portion of the record timestamp.
func (r UploadRecord) MonthKey() string {
	if len(r.Timestamp) >= 7 {
		return r.Timestamp[:7]
	}
	return ""
}

// Settings definiert die drei Parameter der Kostenformel.
type Settings struct {
	MonthlyIncome float64 `json:"monthly_income"`
	DailyPages    int     `json:"daily_pages"`
	DaysPerMonth  int     `json:"days_per_month"`
}

// DefaultSettings returns the built-in rate parameters used when no history
// document exists yet.
func DefaultSettings() Settings {
	return Settings{MonthlyIncome: 2000, DailyPages: 700, DaysPerMonth: 30}
}

// CostPerPage derives the scalar cost rate from the settings.
func (s Settings) CostPerPage() float64 {
	denom := float64(s.DailyPages) * float64(s.DaysPerMonth)
	if denom == 0 {
		return 0
	}
	return s.MonthlyIncome / denom
}

// Valid reports whether every settings field is positive.
func (s Settings) Valid() bool {
	return s.MonthlyIncome > 0 && s.DailyPages > 0 && s.DaysPerMonth > 0
}

// HistoryDocument ist das einzige persistierte Dokument des Record Stores.
type HistoryDocument struct {
	Uploads  []UploadRecord `json:"uploads"`
	Settings Settings       `json:"settings"`
}

// UploadResult is the per-file outcome inside a batch response. Error is set
// for rejected files; ID and SizeMB only for accepted ones.
type UploadResult struct {
	Filename string  `json:"filename"`
	Error    string  `json:"error,omitempty"`
	Pages    int     `json:"pages"`
	Cost     float64 `json:"cost"`
	SizeMB   float64 `json:"size_mb,omitempty"`
	ID       string  `json:"id,omitempty"`
}

package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pdftally/models"
	"pdftally/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IncomingFile ist ein Upload-Kandidat. Open wird erst nach den billigen
// Validierungen (Extension, Duplikat) aufgerufen.
type IncomingFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// BatchResult is the aggregate outcome of one upload batch.
type BatchResult struct {
	Results     []models.UploadResult `json:"results"`
	TotalPages  int                   `json:"total_pages"`
	TotalCost   float64               `json:"total_cost"`
	CostPerPage float64               `json:"cost_per_page"`
}

// UploadService validates incoming files, delegates page counting, stamps the
// cost and appends records to the history. One file's rejection never blocks
// the rest of the batch; the history is persisted once per batch.
type UploadService struct {
	history  *HistoryService
	files    *storage.FileStore
	counter  PageCounter
	maxFiles int
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadService erstellt eine neue Instanz des UploadService.
func NewUploadService(history *HistoryService, files *storage.FileStore, counter PageCounter, maxFiles int, maxBytes int64, logger *zap.Logger) *UploadService {
	return &UploadService{
		history:  history,
		files:    files,
		counter:  counter,
		maxFiles: maxFiles,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// ProcessBatch verarbeitet bis zu maxFiles Kandidaten. Die Duplikatprüfung
// läuft gegen den History-Snapshot vom Batch-Start; Duplikate innerhalb
// derselben Charge werden bewusst nicht gegeneinander geprüft.
func (s *UploadService) ProcessBatch(incoming []IncomingFile, now time.Time) (*BatchResult, error) {
	if len(incoming) == 0 {
		return nil, fmt.Errorf("no files provided")
	}
	if len(incoming) > s.maxFiles {
		return nil, fmt.Errorf("maximum %d files per batch", s.maxFiles)
	}

	existing := s.history.ExistingNames()
	settings := s.history.Settings()
	rate := settings.CostPerPage()

	batch := &BatchResult{
		Results:     make([]models.UploadResult, 0, len(incoming)),
		CostPerPage: Round6(rate),
	}
	var records []models.UploadRecord

	for _, in := range incoming {
		result, record := s.processFile(in, existing, rate, now)
		batch.Results = append(batch.Results, result)
		if record == nil {
			continue
		}
		batch.TotalPages += record.Pages
		batch.TotalCost += record.Cost
		records = append(records, *record)
	}
	batch.TotalCost = Round4(batch.TotalCost)

	if err := s.history.AppendBatch(records); err != nil {
		return nil, fmt.Errorf("persist history: %w", err)
	}
	return batch, nil
}

// processFile runs the per-file decision sequence and returns the API result
// plus the record to append (nil for rejected files).
func (s *UploadService) processFile(in IncomingFile, existing map[string]struct{}, rate float64, now time.Time) (models.UploadResult, *models.UploadRecord) {
	name := in.Filename
	if name == "" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		if name == "" {
			name = "unknown"
		}
		return models.UploadResult{Filename: name, Error: "not a PDF"}, nil
	}

	if _, dup := existing[strings.ToLower(name)]; dup {
		return models.UploadResult{Filename: name, Error: "duplicate - already in history"}, nil
	}

	id := newRecordID()
	savedAs := id + "_" + name

	src, err := in.Open()
	if err != nil {
		s.logger.Error("Upload could not be opened", zap.String("filename", name), zap.Error(err))
		return models.UploadResult{Filename: name, Error: "file could not be read"}, nil
	}
	size, err := s.files.Save(savedAs, src)
	src.Close()
	if err != nil {
		s.logger.Error("Upload could not be stored", zap.String("filename", name), zap.Error(err))
		_ = s.files.Remove(savedAs)
		return models.UploadResult{Filename: name, Error: "file could not be stored"}, nil
	}

	if size > s.maxBytes {
		// Rollback: die bereits geschriebene Datei wieder entfernen.
		_ = s.files.Remove(savedAs)
		return models.UploadResult{Filename: name, Error: fmt.Sprintf("file too large (max %dMB)", s.maxBytes/(1024*1024))}, nil
	}

	pages, err := s.counter.CountPages(s.files.Path(savedAs))
	if err != nil {
		// Degraded path: a corrupt PDF yields a zero-page record, it does not
		// reject the upload or abort the batch.
		s.logger.Warn("Page counting failed, recording 0 pages", zap.String("filename", name), zap.Error(err))
		pages = 0
	}

	cost := Round4(float64(pages) * rate)
	s.logger.Info("Upload accepted",
		zap.String("id", id),
		zap.String("filename", name),
		zap.Int("pages", pages),
		zap.Float64("cost", cost),
		zap.Int64("size_bytes", size),
	)

	record := &models.UploadRecord{
		ID:        id,
		Filename:  name,
		SavedAs:   savedAs,
		Pages:     pages,
		Cost:      cost,
		SizeBytes: size,
		Timestamp: now.Format("2006-01-02T15:04:05"),
		Date:      now.Format("2006-01-02"),
	}
	result := models.UploadResult{
		Filename: name,
		Pages:    pages,
		Cost:     cost,
		SizeMB:   roundMB(size),
		ID:       id,
	}
	return result, record
}

// newRecordID liefert eine 12-stellige Hex-ID (UUIDv4-Präfix).
func newRecordID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

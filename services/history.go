package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pdftally/models"
	"pdftally/storage"

	"go.uber.org/zap"
)

// ErrNotFound wird zurückgegeben, wenn eine Record-ID nicht existiert.
var ErrNotFound = errors.New("record not found")

// HistoryService owns the single persisted history document. All state lives
// in memory behind one mutex that is held for the whole mutate+persist span,
// so concurrent writers serialize instead of racing load-modify-store.
// The JSON file is written via temp file + rename: a failed save leaves the
// prior on-disk state intact.
type HistoryService struct {
	mu   sync.Mutex
	path string
	doc  models.HistoryDocument
	// names indexes lowercased filenames for duplicate detection, maintained
	// incrementally instead of rescanning the record list.
	names map[string]string

	files    *storage.FileStore
	exporter *ExcelExporter
	logger   *zap.Logger
}

// NewHistoryService lädt das History-Dokument. Eine fehlende Datei ist der
// normale Initialzustand (leere Liste, Default-Settings), kein Fehler.
func NewHistoryService(path string, files *storage.FileStore, exporter *ExcelExporter, logger *zap.Logger) (*HistoryService, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	h := &HistoryService{
		path:     path,
		files:    files,
		exporter: exporter,
		logger:   logger,
		names:    make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		h.doc = models.HistoryDocument{Uploads: []models.UploadRecord{}, Settings: models.DefaultSettings()}
	case err != nil:
		return nil, fmt.Errorf("read history document: %w", err)
	default:
		if err := json.Unmarshal(data, &h.doc); err != nil {
			return nil, fmt.Errorf("parse history document: %w", err)
		}
		if h.doc.Uploads == nil {
			h.doc.Uploads = []models.UploadRecord{}
		}
		if !h.doc.Settings.Valid() {
			h.doc.Settings = models.DefaultSettings()
		}
	}

	for _, r := range h.doc.Uploads {
		h.names[strings.ToLower(r.Filename)] = r.ID
	}
	return h, nil
}

// Snapshot returns a copy of the current records and settings for readers.
func (h *HistoryService) Snapshot() ([]models.UploadRecord, models.Settings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	records := make([]models.UploadRecord, len(h.doc.Uploads))
	copy(records, h.doc.Uploads)
	return records, h.doc.Settings
}

// Settings returns the current rate parameters.
func (h *HistoryService) Settings() models.Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Settings
}

// ExistingNames returns the lowercased filenames currently in history. The
// upload orchestrator takes this snapshot once at batch start.
func (h *HistoryService) ExistingNames() map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]struct{}, len(h.names))
	for name := range h.names {
		out[name] = struct{}{}
	}
	return out
}

// AppendBatch hängt die Records einer Upload-Charge an und persistiert genau
// einmal. Schlägt das Persistieren fehl, wird der In-Memory-Zustand auf den
// Stand der Platte zurückgesetzt.
func (h *HistoryService) AppendBatch(records []models.UploadRecord) error {
	if len(records) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	prevLen := len(h.doc.Uploads)
	h.doc.Uploads = append(h.doc.Uploads, records...)
	for _, r := range records {
		h.names[strings.ToLower(r.Filename)] = r.ID
	}

	if err := h.persistLocked(); err != nil {
		h.doc.Uploads = h.doc.Uploads[:prevLen]
		for _, r := range records {
			delete(h.names, strings.ToLower(r.Filename))
		}
		return err
	}
	return nil
}

// UpdateSettings validates and persists new rate parameters and returns the
// recomputed cost per page. Existing records keep their stamped cost.
func (h *HistoryService) UpdateSettings(s models.Settings) (float64, error) {
	if !s.Valid() {
		return 0, errors.New("all settings must be positive numbers")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.doc.Settings
	h.doc.Settings = s
	if err := h.persistLocked(); err != nil {
		h.doc.Settings = prev
		return 0, err
	}
	return Round6(s.CostPerPage()), nil
}

// DeleteByID removes exactly one record and releases its stored file.
// Returns ErrNotFound for unknown ids without mutating anything.
func (h *HistoryService) DeleteByID(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := -1
	for i, r := range h.doc.Uploads {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	removed := h.doc.Uploads[idx]
	h.doc.Uploads = append(h.doc.Uploads[:idx], h.doc.Uploads[idx+1:]...)
	delete(h.names, strings.ToLower(removed.Filename))

	if err := h.persistLocked(); err != nil {
		h.restoreLocked(idx, removed)
		return err
	}
	h.releaseFile(removed)
	return nil
}

// DeleteByIDs removes every record whose id is in the set and reports how
// many were removed. Unknown ids are skipped, not errors.
func (h *HistoryService) DeleteByIDs(ids []string) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deleteWhereLocked(func(r models.UploadRecord) bool {
		_, ok := want[r.ID]
		return ok
	})
}

// DeleteByDateRange removes records whose timestamp date falls inside the
// inclusive [from, to] range.
func (h *HistoryService) DeleteByDateRange(from, to string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deleteWhereLocked(func(r models.UploadRecord) bool {
		d := r.DateKey()
		return d >= from && d <= to
	})
}

// deleteWhereLocked ist der gemeinsame Bulk-Delete-Pfad: erst persistieren,
// dann Dateien freigeben.
func (h *HistoryService) deleteWhereLocked(match func(models.UploadRecord) bool) (int, error) {
	var removed []models.UploadRecord
	kept := h.doc.Uploads[:0:0]
	for _, r := range h.doc.Uploads {
		if match(r) {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	prev := h.doc.Uploads
	h.doc.Uploads = kept
	for _, r := range removed {
		delete(h.names, strings.ToLower(r.Filename))
	}

	if err := h.persistLocked(); err != nil {
		h.doc.Uploads = prev
		for _, r := range removed {
			h.names[strings.ToLower(r.Filename)] = r.ID
		}
		return 0, err
	}

	for _, r := range removed {
		h.releaseFile(r)
	}
	return len(removed), nil
}

func (h *HistoryService) restoreLocked(idx int, r models.UploadRecord) {
	h.doc.Uploads = append(h.doc.Uploads, models.UploadRecord{})
	copy(h.doc.Uploads[idx+1:], h.doc.Uploads[idx:])
	h.doc.Uploads[idx] = r
	h.names[strings.ToLower(r.Filename)] = r.ID
}

// releaseFile löscht die gespeicherte Datei best-effort; eine fehlende Datei
// ist kein Fehler.
func (h *HistoryService) releaseFile(r models.UploadRecord) {
	if err := h.files.Remove(r.SavedAs); err != nil {
		h.logger.Warn("Stored file could not be removed", zap.String("saved_as", r.SavedAs), zap.Error(err))
	}
}

// persistLocked writes the document atomically and regenerates the xlsx
// report (write-through). Report regeneration failure is logged, not fatal:
// the report is a derived cache, never the source of truth.
func (h *HistoryService) persistLocked() error {
	data, err := json.MarshalIndent(h.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.path), "history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history document: %w", err)
	}

	if err := h.exporter.Write(h.doc); err != nil {
		h.logger.Warn("Excel report regeneration failed", zap.Error(err))
	}
	return nil
}

// EnsureExport regenerates the xlsx report lazily if it does not exist yet.
func (h *HistoryService) EnsureExport() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := os.Stat(h.exporter.Path()); err == nil {
		return nil
	}
	return h.exporter.Write(h.doc)
}

// ExportPath returns the xlsx report location.
func (h *HistoryService) ExportPath() string {
	return h.exporter.Path()
}

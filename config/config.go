package config

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"5000"`

	// DataDir holds history.json and the derived xlsx report.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`
	// OutputDir holds the stored PDF files, keyed by saved_as.
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./Output"`

	MaxFiles      int `envconfig:"MAX_FILES" default:"20"`
	MaxFileSizeMB int `envconfig:"MAX_FILE_SIZE_MB" default:"100"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Backup-Konfiguration (optional; Backups sind deaktiviert ohne Bucket).
	CronSchedule   string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`
	BackupS3Bucket string `envconfig:"BACKUP_S3_BUCKET"`
	BackupS3URL    string `envconfig:"BACKUP_S3_URL"`
	BackupS3Region string `envconfig:"BACKUP_S3_REGION"`
	BackupS3Key    string `envconfig:"BACKUP_S3_KEY"`
	BackupS3Secret string `envconfig:"BACKUP_S3_SECRET"`
	KeepBackups    int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// HistoryPath gibt den Pfad des persistierten History-Dokuments zurück.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.json")
}

// ExcelPath gibt den Pfad des generierten xlsx-Reports zurück.
func (c *Config) ExcelPath() string {
	return filepath.Join(c.DataDir, "history.xlsx")
}

// MaxFileSizeBytes returns the per-file upload cap in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// BackupEnabled reports whether the S3 backup block is configured.
func (c *Config) BackupEnabled() bool {
	return c.BackupS3Bucket != "" && c.BackupS3URL != "" && c.BackupS3Key != "" && c.BackupS3Secret != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

package main

import (
	"context"
	"log"

	"pdftally/config"
	"pdftally/services"
	"pdftally/storage"

	"go.uber.org/zap"
)

// Standalone-Backup: packt das Datenverzeichnis und die gespeicherten PDFs,
// lädt sie ins S3-Bucket und rotiert alte Stände.
func main() {
	log.Println("Starte Backup-Prozess...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}
	if !cfg.BackupEnabled() {
		log.Fatal("Backup ist nicht konfiguriert (BACKUP_S3_* Variablen fehlen)")
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	backup := services.NewBackupService(cfg, s3Client, logger)
	if err := backup.Run(context.Background()); err != nil {
		log.Fatalf("Backup fehlgeschlagen: %v", err)
	}

	log.Println("Backup-Prozess erfolgreich abgeschlossen.")
}

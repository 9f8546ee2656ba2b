package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pdftally/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// BackupService schiebt einen tar.gz-Snapshot des Datenverzeichnisses und der
// gespeicherten PDFs ins S3-Bucket und rotiert alte Backups. The snapshot is
// read-only: the history document stays owned by this process.
type BackupService struct {
	cfg    *config.Config
	client *s3.Client
	logger *zap.Logger
}

// NewBackupService erstellt eine neue Instanz des BackupService.
func NewBackupService(cfg *config.Config, client *s3.Client, logger *zap.Logger) *BackupService {
	return &BackupService{cfg: cfg, client: client, logger: logger}
}

// Run erzeugt ein Backup, lädt es hoch und rotiert auf KeepBackups Stände.
func (b *BackupService) Run(ctx context.Context) error {
	archive, err := b.createArchive()
	if err != nil {
		return fmt.Errorf("create backup archive: %w", err)
	}

	key := fmt.Sprintf("pdftally-backup-%s.tar.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.BackupS3Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(archive),
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	b.logger.Info("Backup uploaded",
		zap.String("key", key),
		zap.Int("size_bytes", len(archive)),
	)

	return b.rotate(ctx)
}

// createArchive packt DataDir und OutputDir in ein tar.gz im Speicher.
func (b *BackupService) createArchive() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, dir := range []string{b.cfg.DataDir, b.cfg.OutputDir} {
		if err := addDir(tw, dir); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addDir(tw *tar.Writer, dir string) error {
	base := filepath.Base(dir)
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		return err
	})
}

// rotate löscht die ältesten Backups oberhalb von KeepBackups.
func (b *BackupService) rotate(ctx context.Context) error {
	output, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.cfg.BackupS3Bucket),
	})
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	if len(output.Contents) <= b.cfg.KeepBackups {
		return nil
	}

	sort.Slice(output.Contents, func(i, j int) bool {
		return output.Contents[i].LastModified.After(*output.Contents[j].LastModified)
	})

	for _, obj := range output.Contents[b.cfg.KeepBackups:] {
		b.logger.Info("Deleting old backup", zap.String("key", *obj.Key))
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.cfg.BackupS3Bucket),
			Key:    obj.Key,
		})
		if err != nil {
			b.logger.Warn("Old backup could not be deleted", zap.String("key", *obj.Key), zap.Error(err))
		}
	}
	return nil
}

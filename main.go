package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pdftally/config"
	"pdftally/services"
	"pdftally/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	uploadsCounter prometheus.Counter
	pagesCounter   prometheus.Counter
	deletesCounter prometheus.Counter
)

func init() {
	uploadsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdftally_uploads_total",
			Help: "Total number of PDF uploads accepted into the history.",
		},
	)
	pagesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdftally_pages_counted_total",
			Help: "Total number of pages counted across accepted uploads.",
		},
	)
	deletesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdftally_records_deleted_total",
			Help: "Total number of history records deleted.",
		},
	)
	prometheus.MustRegister(uploadsCounter, pagesCounter, deletesCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	fileStore, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logging.Fatal("Output directory setup failed", zap.Error(err))
	}

	exporter := services.NewExcelExporter(cfg.ExcelPath())
	history, err := services.NewHistoryService(cfg.HistoryPath(), fileStore, exporter, logging)
	if err != nil {
		logging.Fatal("History document could not be loaded", zap.Error(err))
	}
	logging.Info("History loaded",
		zap.String("path", cfg.HistoryPath()),
		zap.Float64("cost_per_page", services.Round6(history.Settings().CostPerPage())),
	)

	uploadService := services.NewUploadService(
		history, fileStore, services.NewPageCounter(),
		cfg.MaxFiles, cfg.MaxFileSizeBytes(), logging,
	)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "pdftally"})
	})

	setupUploadRoutes(router, uploadService, cfg)
	setupHistoryRoutes(router, history)
	setupDeleteRoutes(router, history, logging)
	setupSettingsRoutes(router, history, logging)
	setupExportRoutes(router, history, logging)

	// Optionales S3-Backup per Cron
	if cfg.BackupEnabled() {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		backup := services.NewBackupService(cfg, s3Client, logging)
		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled backup job...")
			if err := backup.Run(context.Background()); err != nil {
				logging.Error("Backup job failed", zap.Error(err))
			}
		})
		cronScheduler.Start()
		logging.Info("Backup cron active", zap.String("schedule", cfg.CronSchedule))
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupUploadRoutes(router *gin.Engine, uploads *services.UploadService, cfg *config.Config) {
	rg := router.Group("/api")

	rg.POST("/upload", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
			return
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
			return
		}
		if len(headers) > cfg.MaxFiles {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maximum " + strconv.Itoa(cfg.MaxFiles) + " files per batch"})
			return
		}

		incoming := make([]services.IncomingFile, 0, len(headers))
		for _, fh := range headers {
			fh := fh
			incoming = append(incoming, services.IncomingFile{
				Filename: fh.Filename,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}

		batch, err := uploads.ProcessBatch(incoming, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist upload history"})
			return
		}

		accepted := 0
		for _, r := range batch.Results {
			if r.Error == "" {
				accepted++
			}
		}
		uploadsCounter.Add(float64(accepted))
		pagesCounter.Add(float64(batch.TotalPages))

		c.JSON(http.StatusOK, batch)
	})
}

func setupHistoryRoutes(router *gin.Engine, history *services.HistoryService) {
	rg := router.Group("/api")

	rg.GET("/history", func(c *gin.Context) {
		records, settings := history.Snapshot()
		filtered := services.FilterRecords(records, c.Query("from"), c.Query("to"), c.Query("search"))
		sorted := services.SortByTimestampDesc(filtered)
		pages, cost := services.Totals(sorted)

		c.JSON(http.StatusOK, gin.H{
			"uploads":       sorted,
			"total_pages":   pages,
			"total_cost":    cost,
			"total_files":   len(sorted),
			"cost_per_page": services.Round6(settings.CostPerPage()),
		})
	})

	rg.GET("/daily-summary", func(c *gin.Context) {
		records, _ := history.Snapshot()
		filtered := services.FilterRecords(records, c.Query("from"), c.Query("to"), "")
		c.JSON(http.StatusOK, gin.H{"days": services.DailySummaries(filtered)})
	})

	rg.GET("/monthly-summary", func(c *gin.Context) {
		records, _ := history.Snapshot()
		c.JSON(http.StatusOK, gin.H{"months": services.MonthlySummaries(records)})
	})

	rg.GET("/stats", func(c *gin.Context) {
		records, settings := history.Snapshot()
		stats := services.PeriodStatistics(records, time.Now())
		c.JSON(http.StatusOK, gin.H{
			"today":         stats.Today,
			"week":          stats.Week,
			"month":         stats.Month,
			"total":         stats.Total,
			"cost_per_page": services.Round6(settings.CostPerPage()),
		})
	})
}

func setupDeleteRoutes(router *gin.Engine, history *services.HistoryService, log *zap.Logger) {
	rg := router.Group("/api")

	rg.DELETE("/delete/:id", func(c *gin.Context) {
		id := c.Param("id")
		err := history.DeleteByID(id)
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			log.Error("Delete failed", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist upload history"})
			return
		}
		deletesCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	rg.POST("/delete-bulk", func(c *gin.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no ids provided"})
			return
		}
		deleted, err := history.DeleteByIDs(req.IDs)
		if err != nil {
			log.Error("Bulk delete failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist upload history"})
			return
		}
		deletesCounter.Add(float64(deleted))
		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
	})

	rg.POST("/reset-period", func(c *gin.Context) {
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.From == "" || req.To == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period required (from, to)"})
			return
		}
		deleted, err := history.DeleteByDateRange(req.From, req.To)
		if err != nil {
			log.Error("Period reset failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist upload history"})
			return
		}
		deletesCounter.Add(float64(deleted))
		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
	})
}

func setupSettingsRoutes(router *gin.Engine, history *services.HistoryService, log *zap.Logger) {
	rg := router.Group("/api")

	rg.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, history.Settings())
	})

	rg.POST("/settings", func(c *gin.Context) {
		// Body generisch lesen, damit auch String-Werte ("2000") akzeptiert
		// werden.
		raw := map[string]any{}
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		income, ok1 := coerceFloat(raw["monthly_income"])
		dailyPages, ok2 := coerceInt(raw["daily_pages"])
		daysPerMonth, ok3 := coerceInt(raw["days_per_month"])
		if !ok1 || !ok2 || !ok3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_income, daily_pages and days_per_month must be numbers"})
			return
		}

		settings := history.Settings()
		settings.MonthlyIncome = income
		settings.DailyPages = dailyPages
		settings.DaysPerMonth = daysPerMonth

		rate, err := history.UpdateSettings(settings)
		if err != nil {
			if strings.Contains(err.Error(), "positive") {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("Settings update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist settings"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cost_per_page": rate})
	})
}

func setupExportRoutes(router *gin.Engine, history *services.HistoryService, log *zap.Logger) {
	rg := router.Group("/api")

	rg.GET("/export-excel", func(c *gin.Context) {
		if err := history.EnsureExport(); err != nil {
			log.Error("Excel export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
			return
		}
		c.FileAttachment(history.ExportPath(), "upload_history.xlsx")
	})
}

// Helper: Coercion für numerische Settings-Felder.
func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f, true
		}
		return 0, false
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/config"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/database"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/export"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"

	"go.uber.org/zap"
)

// 直接从 Record Store 导出全部记录到文件（不经过本地缓存）
func main() {
	format := flag.String("format", "csv", "Export format: csv or xlsx")
	out := flag.String("out", ".", "Output directory")
	name := flag.String("name", "", "File name (default: breakdown-records-<timestamp>.<format>)")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var s recordstore.Store
	switch cfg.RecordStore.Backend {
	case "http":
		s = recordstore.NewHTTPStore(cfg.RecordStore.URL, cfg.RecordStore.APIKey, cfg.RecordStore.Timeout, zap.NewNop()).
			WithCollection(cfg.RecordStore.Collection)
	case "postgres":
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Cannot connect to database: %v", err)
		}
		defer db.Close()
		s = recordstore.NewPostgresStore(db)
	default:
		log.Fatalf("Backend %q has no persistent records to export", cfg.RecordStore.Backend)
	}

	records, err := s.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list records: %v", err)
	}

	var doc *export.Document
	switch *format {
	case "csv":
		doc, err = export.BuildCSV(records, *name, time.Now())
	case "xlsx":
		doc, err = export.BuildXLSX(records, *name, time.Now())
	default:
		log.Fatalf("Unsupported format %q", *format)
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	path := filepath.Join(*out, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("✅ %s (%s)\n", doc.Message(), path)
}

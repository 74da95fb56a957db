// Command complaints-import copies complaints into the SQLite snapshot store,
// either from a CSV export or from the configured worksheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"complaints/internal/backend"
	"complaints/internal/cli"
	"complaints/internal/config"
	"complaints/internal/log"
	"complaints/internal/sheets"
	gsheet "complaints/internal/sheets/google"
	"complaints/internal/sheets/memory"
	"complaints/internal/worker"
)

func main() {
	csvPath := flag.String("csv", "", "import this CSV file instead of the worksheet")
	dbPath := flag.String("db", "", "SQLite database path (default SQLITE_DB_PATH)")
	timeout := flag.Duration("timeout", 0, "import timeout (default LOAD_TIMEOUT)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentImporter)
	cfg := config.Load()
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}
	if *timeout <= 0 {
		*timeout = cfg.LoadTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := openSource(ctx, cfg, *csvPath)
	if err != nil {
		logger.Error("Failed to open import source", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	snap, err := worker.NewRefreshWorker(source, repo).Import(ctx)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldOperation, log.OpImport)
		os.Exit(1)
	}
	logger.Info("Import complete", log.NewFields().
		WithSnapshot(snap.ID, snap.Source, snap.Len()).
		WithOperation(log.OpImport).
		ToSlice()...)
	fmt.Printf("imported %d records into %s (snapshot %s, %s)\n",
		snap.Len(), cfg.SQLiteDBPath, snap.ID, snap.LoadedAt.Format(time.RFC3339))
}

func openSource(ctx context.Context, cfg *config.Config, csvPath string) (sheets.SnapshotReader, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		snap, err := memory.ReadCSV(csvPath, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", csvPath, err)
		}
		return memory.New(snap), nil
	}
	if err := cfg.ValidateSheets(); err != nil {
		return nil, err
	}
	return gsheet.New(ctx, backend.SheetsSettings(cfg))
}

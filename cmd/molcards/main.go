package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/molcards/internal/config"
	"github.com/conorfennell/molcards/internal/importer"
	"github.com/conorfennell/molcards/internal/library"
	"github.com/conorfennell/molcards/internal/storage"
	"github.com/conorfennell/molcards/internal/tabular"
	"github.com/conorfennell/molcards/internal/web"
)

type store interface {
	library.Store
	Close() error
}

func main() {
	// 1. Resolve configuration from file, environment and flags
	cfg, err := config.Load(config.Flags("molcards"), os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	// 2. Open the record store
	st, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open record store", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	lib := library.New(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. One-shot import/export, or serve the web interface
	if cfg.OneShot() {
		if err := runOneShot(ctx, lib, cfg); err != nil {
			slog.Error("Command failed", "error", err)
			st.Close()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, lib, cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		st.Close()
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (store, error) {
	if cfg.Backend == "csv" {
		slog.Info("Using CSV record file", "path", cfg.CSV)
		return storage.OpenCSV(cfg.CSV), nil
	}
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	slog.Info("Database opened successfully", "path", cfg.DB)
	return db, nil
}

func runOneShot(ctx context.Context, lib *library.Library, cfg config.Config) error {
	if cfg.Import != "" {
		report, err := importer.ImportSource(ctx, lib, cfg.Import, cfg.ReposDir)
		if err != nil {
			return fmt.Errorf("import %s: %w", cfg.Import, err)
		}
		fmt.Printf("Imported %d molecules (%d duplicates, %d rows without a name).\n",
			report.Added, report.Duplicates, report.Skipped)
	}

	if cfg.Export != "" {
		format, err := tabular.FormatFromName(cfg.Export)
		if err != nil {
			return fmt.Errorf("export %s: %w", cfg.Export, err)
		}
		f, err := os.Create(cfg.Export)
		if err != nil {
			return fmt.Errorf("export %s: %w", cfg.Export, err)
		}
		if err := lib.Export(ctx, f, format); err != nil {
			f.Close()
			return fmt.Errorf("export %s: %w", cfg.Export, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("export %s: %w", cfg.Export, err)
		}
		fmt.Printf("Exported molecules to %s.\n", cfg.Export)
	}
	return nil
}

func serve(ctx context.Context, lib *library.Library, cfg config.Config) error {
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(lib, web.Options{
			ReposDir:  cfg.ReposDir,
			QuizCount: cfg.QuizCount,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving MolCards", "addr", "http://"+cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server shut down")
	return nil
}

// Command lexpipe runs the legal document ingestion service: an HTTP intake
// API, the OCR queue consumer and operational subcommands for one-off
// processing and queue inspection.
package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lexpipe/blobstore"
	"github.com/hazyhaar/lexpipe/dbopen"
	"github.com/hazyhaar/lexpipe/docpipe"
	"github.com/hazyhaar/lexpipe/graphstore"
	"github.com/hazyhaar/lexpipe/observability"
	"github.com/hazyhaar/lexpipe/ocrjobs"
	"github.com/hazyhaar/lexpipe/ocrjobs/tesseract"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "lexpipe",
		Short: "Legal document ingestion and OCR orchestration",
		Long: `lexpipe extracts text from uploaded legal documents (PDF, Office,
structured and plain formats), normalises and chunks it, extracts entities,
scores quality and orchestrates OCR for scanned documents.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lexpipe %s\n", version)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the OCR queue consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	})

	var caseID string
	processCmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run one file through the pipeline and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runProcess(cfg, args[0], caseID)
		},
	}
	processCmd.Flags().StringVar(&caseID, "case", "case_local", "case the document belongs to")
	rootCmd.AddCommand(processCmd)

	var jobStatus string
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List OCR jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runJobs(cfg, jobStatus)
		},
	}
	jobsCmd.Flags().StringVar(&jobStatus, "status", "queued", "job status to list (queued, running, completed, failed)")
	rootCmd.AddCommand(jobsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// buildOrchestrator opens the stores and wires the OCR orchestrator.
func buildOrchestrator(ctx context.Context, cfg *Config, logger *slog.Logger) (*ocrjobs.Orchestrator, *graphstore.Store, *sql.DB, error) {
	db, err := dbopen.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	store := graphstore.New(db, graphstore.Options{Role: cfg.Role, Logger: logger})
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	queue := ocrjobs.NewQueue(db, cfg.visibility())
	if err := queue.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	blobs, err := blobstore.Open(cfg.BlobDir)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	var local ocrjobs.Engine
	if cfg.OCR.LocalEnabled {
		local = tesseract.New(tesseract.Config{Languages: cfg.OCR.Languages})
	}
	var remote *ocrjobs.RemoteClient
	if cfg.OCR.RemoteEndpoint != "" {
		remote = ocrjobs.NewRemoteClient(cfg.OCR.RemoteEndpoint, cfg.OCR.RemoteToken)
	}

	orch := ocrjobs.New(ocrjobs.Config{
		Store:    store,
		Queue:    queue,
		Blobs:    blobs,
		Remote:   remote,
		Local:    local,
		Pipeline: docpipe.New(docpipe.Config{Logger: logger}),
		Policy:   cfg.Residency,
		Logger:   logger,
	})
	return orch, store, db, nil
}

func runServe(cfg *Config) error {
	logger := setupLogging(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch, store, db, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Observability lives in its own database to keep heartbeat writes off
	// the graph store's WAL.
	obsDB, err := dbopen.Open(cfg.ObsDBPath)
	if err != nil {
		return err
	}
	defer obsDB.Close()
	if err := observability.Init(obsDB); err != nil {
		return err
	}
	hbWriter := observability.NewHeartbeatWriter(obsDB, "lexpipe-consumer", 15*time.Second)
	hbWriter.Start(ctx)
	defer hbWriter.Stop()

	srv := &server{
		store:     store,
		orch:      orch,
		db:        db,
		obsDB:     obsDB,
		batchSize: cfg.OCR.BatchSize,
		log:       logger,
	}
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.Listen, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.pollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				report, err := orch.ProcessQueue(gctx, cfg.OCR.BatchSize)
				if err != nil {
					logger.Error("queue pass failed", "error", err)
					continue
				}
				if report.Total > 0 || report.Requeued > 0 {
					logger.Info("queue pass",
						"total", report.Total, "completed", report.Completed,
						"failed", report.Failed, "crashed", report.Crashed,
						"requeued", report.Requeued)
				}
			}
		}
	})

	return g.Wait()
}

func runProcess(cfg *Config, path, caseID string) error {
	logger := setupLogging(cfg.LogLevel)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	raw := string(data)
	if mimeType != "" && mimeType != "text/plain; charset=utf-8" {
		raw = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	pipe := docpipe.New(docpipe.Config{Logger: logger})
	res, err := pipe.Process(context.Background(), docpipe.Input{
		DocumentID: "doc_local",
		CaseID:     caseID,
		Title:      filepath.Base(path),
		RawContent: raw,
		MimeType:   mimeType,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runJobs(cfg *Config, status string) error {
	setupLogging("warn")

	ctx := context.Background()
	db, err := dbopen.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := graphstore.New(db, graphstore.Options{Role: cfg.Role})
	if err := store.Init(ctx); err != nil {
		return err
	}

	jobs, err := store.ListJobs(ctx, graphstore.JobStatus(status), 100)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

func runMCP() error {
	logger := setupLogging("warn")

	pipe := docpipe.New(docpipe.Config{Logger: logger})
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "lexpipe",
		Version: version,
	}, nil)
	docpipe.RegisterMCPTools(srv, pipe)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx, &mcp.StdioTransport{})
}

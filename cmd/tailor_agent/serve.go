package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hirekit/tailor/internal/config"
	"github.com/hirekit/tailor/internal/db"
	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/engine"
	"github.com/hirekit/tailor/internal/fetch"
	"github.com/hirekit/tailor/internal/history"
	"github.com/hirekit/tailor/internal/logger"
	"github.com/hirekit/tailor/internal/parsing"
	"github.com/hirekit/tailor/internal/server"
	"github.com/hirekit/tailor/internal/session"
)

var (
	servePort       int
	serveUseBrowser bool
	serveDebug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for uploading resumes and running tailoring sessions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA job boards (requires Chrome)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Use human-readable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := config.Config{Port: servePort, UseBrowser: serveUseBrowser}
	cfg.FromEnv()
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	log, err := logger.New(serveDebug)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	eng, err := engine.NewGemini(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	var (
		docs    documents.Store
		hist    history.Store
		cleanup = func() { _ = eng.Close() }
	)
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return err
		}
		docs = documents.NewPostgresStore(database.Pool())
		hist = history.NewPostgresStore(database.Pool())
		cleanup = func() {
			_ = eng.Close()
			database.Close()
		}
	} else {
		docs = documents.NewMemoryStore()
		hist = history.NewMemoryStore()
	}

	fetcher := fetch.NewClient(fetch.Options{UseBrowser: cfg.UseBrowser})

	manager := session.NewManager(session.Options{
		Fetcher:   fetcher,
		Parser:    parsing.NewStoreParser(docs),
		Engine:    eng,
		Extractor: eng,
		Documents: docs,
		History:   hist,
		Logger:    log,
		Config:    session.DefaultConfig(),
	})

	// Bearer auth is enabled only when a JWT secret is configured.
	var jwtService *server.JWTService
	if os.Getenv("JWT_SECRET") != "" {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		jwtService = server.NewJWTService(jwtCfg)
	}

	srv, err := server.New(server.Options{
		Port:      cfg.Port,
		Manager:   manager,
		Documents: docs,
		JWT:       jwtService,
		Logger:    log,
		Cleanup:   cleanup,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

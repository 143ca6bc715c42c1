package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hirekit/tailor/internal/config"
	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/engine"
	"github.com/hirekit/tailor/internal/fetch"
	"github.com/hirekit/tailor/internal/history"
	"github.com/hirekit/tailor/internal/logger"
	"github.com/hirekit/tailor/internal/observability"
	"github.com/hirekit/tailor/internal/parsing"
	"github.com/hirekit/tailor/internal/session"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one tailoring session end-to-end",
	Long: `Fetches a job posting, parses the given resume, optimizes it for the posting and prints before/after ATS scores.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runTailoringCmd,
}

var (
	runConfigPath string
	runJobURL     string
	runResume     string
	runAPIKey     string
	runModel      string
	runUseBrowser bool
	runVerbose    bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runJobURL, "job-url", "", "URL of the job posting")
	runCommand.Flags().StringVarP(&runResume, "resume", "r", "", "Path to resume file (.pdf or .txt)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA job boards (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVar(&runModel, "model", "", "Gemini model override")

	rootCmd.AddCommand(runCommand)
}

func runTailoringCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}

	// CLI overrides win over config file values.
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = runModel
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(config.Config{
		Model: engine.DefaultModel,
	})

	if runJobURL == "" {
		return fmt.Errorf("--job-url is required")
	}
	if runResume == "" {
		return fmt.Errorf("--resume is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	log := zap.NewNop()
	if cfg.Verbose {
		var err error
		log, err = logger.New(true)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
	}

	eng, err := engine.NewGemini(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close() //nolint:errcheck

	docs := documents.NewMemoryStore()
	hist := history.NewMemoryStore()

	doc, err := loadResumeDocument(runResume)
	if err != nil {
		return err
	}
	if err := docs.Put(ctx, doc); err != nil {
		return err
	}

	manager := session.NewManager(session.Options{
		Fetcher:   fetch.NewClient(fetch.Options{UseBrowser: cfg.UseBrowser}),
		Parser:    parsing.NewStoreParser(docs),
		Engine:    eng,
		Extractor: eng,
		Documents: docs,
		History:   hist,
		Logger:    log,
		Config:    session.DefaultConfig(),
	})

	sessionID, err := manager.Submit(ctx, "local", runJobURL, doc.ID)
	if err != nil {
		return err
	}

	events, cancel, err := manager.Subscribe(sessionID)
	if err != nil {
		return err
	}
	defer cancel()

	printer := observability.NewPrinter(os.Stdout)
	final := watchSession(manager, sessionID, events)

	switch final.State {
	case session.StateSucceeded:
		result, err := manager.GetResult(sessionID)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			if req, err := manager.GetRequirements(sessionID); err == nil && req != nil {
				printer.PrintRequirements(req)
			}
		}
		printer.PrintResult(result)
		if cfg.Verbose {
			printer.PrintResume(result.OptimizedResume)
			if entries, err := manager.ListHistory(ctx, "local"); err == nil {
				printer.PrintHistory(entries)
			}
		}
		return nil
	default:
		if final.Error != nil {
			return fmt.Errorf("tailoring failed (%s): %s", final.Error.Kind, final.Error.Message)
		}
		return fmt.Errorf("tailoring ended in state %s", final.State)
	}
}

// watchSession prints progress until the session reaches a terminal state.
func watchSession(manager *session.Manager, id uuid.UUID, events <-chan session.Event) session.Status {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				status, _ := manager.GetStatus(id)
				return status
			}
			fmt.Printf("[%3d%%] %s\n", ev.ProgressPercent, ev.StatusMessage)
			if ev.State.Terminal() {
				status, _ := manager.GetStatus(id)
				return status
			}
		case <-ticker.C:
			// Poll as a safety net; events may be dropped under load.
			if status, err := manager.GetStatus(id); err == nil && status.State.Terminal() {
				return status
			}
		}
	}
}

// loadResumeDocument reads a local resume file into an uploaded document.
func loadResumeDocument(path string) (documents.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return documents.Document{}, fmt.Errorf("failed to read resume: %w", err)
	}

	var mediaType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		mediaType = documents.MediaTypePDF
	case ".txt":
		mediaType = documents.MediaTypeText
	default:
		return documents.Document{}, fmt.Errorf("unsupported resume format: %s (use .pdf or .txt)", filepath.Ext(path))
	}

	return documents.Document{
		ID:         uuid.New(),
		UserID:     "local",
		FileName:   filepath.Base(path),
		MediaType:  mediaType,
		Content:    content,
		UploadedAt: time.Now().UTC(),
	}, nil
}

package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/docscan/internal/document"
	"github.com/zombor/docscan/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("docscan")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "", "Persist the session history in this BoltDB file (in-memory when empty)")
		outDir      = fs.StringLong("out", "./exports", "Output directory for workbooks in batch mode")
		typesPath   = fs.StringLong("types", "", "YAML file overriding document type labels")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini', 'ollama' or 'openai'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl, llama3.2-vision)")
		openaiURL   = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DOCSCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	catalog := document.DefaultCatalog()
	if *typesPath != "" {
		var err error
		catalog, err = document.LoadCatalog(*typesPath)
		if err != nil {
			slog.Error("Failed to load type catalog", "path", *typesPath, "error", err)
			os.Exit(1)
		}
	}

	var scanner scanning.Scanner
	var err error
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		slog.Info("Initializing OpenAI scanner...", "url", *openaiURL, "model", *openaiModel)
		scanner, err = scanning.NewOpenAI(*openaiURL, apiKey, *openaiModel)
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or openai")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	history := document.NewHistory()
	if *dbPath != "" {
		slog.Info("Opening history database...", "path", *dbPath)
		db, err := document.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		history, err = document.OpenHistory(db)
		if err != nil {
			slog.Error("Failed to load history", "error", err)
			os.Exit(1)
		}
		slog.Info("History loaded", "documents", history.Len())
	}

	service := document.NewService(scanner, history, catalog)

	if files := fs.GetArgs(); len(files) > 0 {
		if err := runBatch(service, files, *outDir); err != nil {
			slog.Error("Batch finished with errors", "error", err)
			os.Exit(1)
		}
		return
	}

	basicAuth := document.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := document.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// runBatch extracts files in order and writes one workbook per document
// plus the organized export of the whole history into outDir
func runBatch(service *document.Service, files []string, outDir string) error {
	store, err := document.NewLocalStorage(outDir)
	if err != nil {
		return err
	}

	uploads := make([]document.Upload, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		uploads = append(uploads, document.Upload{
			Filename:    filepath.Base(path),
			Data:        data,
			ContentType: http.DetectContentType(data),
		})
	}

	report := service.ProcessBatch(uploads)
	for _, result := range report.Results {
		if !result.OK() {
			slog.Error("Document failed", "filename", result.Filename, "kind", result.Kind, "error", result.Error)
		}
	}

	names, err := service.SaveWorkbooks(report, store)
	if err != nil {
		return err
	}

	stats := service.Stats()
	slog.Info("Export written",
		"workbook", filepath.Join(outDir, names[len(names)-1]),
		"documents", stats.Documents,
		"clients", len(stats.Clients),
		"total_due", fmt.Sprintf("%.2f", stats.TotalDue),
	)

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(report.Results))
	}
	return nil
}

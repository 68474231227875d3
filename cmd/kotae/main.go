// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stacklet/kotae/internal/answerer"
	"github.com/stacklet/kotae/internal/config"
	"github.com/stacklet/kotae/internal/embedding"
	"github.com/stacklet/kotae/internal/generation"
	"github.com/stacklet/kotae/internal/models"
	"github.com/stacklet/kotae/internal/ragindex"
	"github.com/stacklet/kotae/internal/retrieval"
	"github.com/stacklet/kotae/internal/server"
	"github.com/stacklet/kotae/internal/storage"
	"github.com/stacklet/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "kotae server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a local .env; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "rebuild":
		runRebuild()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (index maintenance, retrieval scores, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Answerer,
		components.Retriever,
		components.Index,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	answers, err := components.Store.ListActiveAnswers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing active answers failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Index.Rebuild(ctx, answers); err != nil {
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Index rebuilt: %d answer(s) indexed\n", len(answers))
}

// buildAskQuestion joins all positional args with spaces so multi-word
// questions work the same with or without shell quoting.
func buildAskQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := buildAskQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	answer, err := askViaHTTP(*serverURL, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{"question": question, "answer": answer}); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(answer)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string) (string, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Answer, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Questions      int64  `json:"questions"`
	Answers        int64  `json:"answers"`
	IndexSize      int    `json:"index_size"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
	Config         *struct {
		EmbeddingProvider   string  `json:"embedding_provider"`
		EmbeddingDimensions int     `json:"embedding_dimensions"`
		TopK                int     `json:"top_k"`
		RelevanceThreshold  float64 `json:"relevance_threshold"`
	} `json:"config,omitempty"`
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if !*force {
		if _, err := os.Stat(*configPath); err == nil {
			fmt.Printf("%s already exists (use --force to overwrite)\n", *configPath)
			os.Exit(1)
		}
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(*configPath, cfg); err != nil {
		fmt.Printf("Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		questionCount, err := components.Store.CountQuestions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count questions failed: %v\n", err)
			os.Exit(1)
		}
		answerCount, err := components.Store.CountAnswers(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count answers failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Questions: questionCount,
			Answers:   answerCount,
			IndexSize: components.Index.Len(),
		}
		diskBytes, err := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath,
			cfg.Storage.VectorIndexPath,
			cfg.Storage.MetadataPath,
		)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("questions:          %d   # count of stored questions\n", status.Questions)
		fmt.Printf("answers:            %d   # count of stored answers\n", status.Answers)
		fmt.Printf("index_size:         %d   # count of indexed active answers\n", status.IndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # database + index artifacts on disk\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			fmt.Printf("embedding_provider: %s\n", status.Config.EmbeddingProvider)
			fmt.Printf("embedding_dims:     %d\n", status.Config.EmbeddingDimensions)
			fmt.Printf("top_k:              %d\n", status.Config.TopK)
			fmt.Printf("relevance_threshold: %g\n", status.Config.RelevanceThreshold)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store     storage.Store
	Embedder  embedding.Embedder
	Index     *ragindex.Index
	Retriever *retrieval.Service
	Answerer  *answerer.Service
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// newEmbedder builds the configured embedding provider wrapped in an LRU cache.
func newEmbedder(cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	var (
		inner embedding.Embedder
		err   error
	)
	switch cfg.Provider {
	case "openai":
		inner, err = embedding.NewOpenAIEmbedder(config.EmbeddingAPIKey(), cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case "onnx":
		inner, err = embedding.NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		// ONNX embedder caches internally; no extra wrapping needed.
		return inner, err
	case "mock":
		inner = embedding.NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return embedding.NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := newEmbedder(&cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	idxOpts := []ragindex.Option{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, ragindex.WithLogger(logger))
	}
	idx, err := ragindex.Open(embedder, cfg.Storage.VectorIndexPath, cfg.Storage.MetadataPath, idxOpts...)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to open answer index: %w", err)
	}
	store.AddAnswerListener(func(ctx context.Context, ev models.AnswerEvent) {
		if err := idx.HandleEvent(ctx, ev); err != nil {
			logger.Warn("index maintenance failed",
				zap.String("event", string(ev.Type)),
				zap.Int64("source_id", ev.SourceID),
				zap.Error(err),
			)
		}
	})

	completer, err := generation.NewOpenAICompleter(generation.Config{
		APIKey:      config.GenerationAPIKey(),
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize completer: %w", err)
	}

	retriever := retrieval.NewService(embedder, idx, logger)
	ans := answerer.NewService(retriever, store, completer,
		cfg.Retrieval.TopK, cfg.Retrieval.RelevanceThreshold, logger)

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Index:     idx,
		Retriever: retriever,
		Answerer:  ans,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Retrieval-augmented answer service for Q&A content

Usage:
  kotae server [flags]            Start the HTTP server
  kotae rebuild [flags]           Rebuild the answer index from the database
  kotae ask [flags] <question>    Ask a question against a running server
  kotae status [flags]            Show store/index status
  kotae init [flags]              Write a default config file
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (index maintenance, retrieval scores, etc.)

Rebuild Flags:
  --config string    Config file path

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae rebuild
  kotae ask "how do I reset my password"
  kotae ask --output json "how do I reset my password"
  kotae status
  kotae status --output json`)
}

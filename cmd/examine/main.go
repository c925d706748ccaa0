package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"promptscan/internal/client"
	"promptscan/internal/config"
	"promptscan/internal/database"
	"promptscan/internal/llm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbpath := flag.String("db", "", "Path to a sqlite or duckdb database")
	file := flag.String("file", "", "Show the stored extraction for this file path")
	limit := flag.Int("limit", 20, "Number of rows to list")
	raw := flag.Bool("raw", false, "Include the raw embedded JSON")
	send := flag.Bool("send", false, "Post the recovered prompts to a running ComfyUI bridge")
	summarize := flag.Bool("summarize", false, "Summarize the positive prompt with an LLM")
	comfyURL := flag.String("comfy-url", "", "ComfyUI bridge URL (default from config)")
	secretsPath := flag.String("secrets", "secrets.yml", "Path to secrets file (for -summarize)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *dbpath == "" {
		flag.Usage()
		return fmt.Errorf("missing database")
	}

	store, err := database.Open(*dbpath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *file == "" {
		return listExtractions(ctx, store, *limit, *raw)
	}

	row, err := store.Get(ctx, *file)
	if err != nil {
		return err
	}
	printExtraction(row, *raw)

	if *send {
		url := *comfyURL
		if url == "" {
			url = "http://localhost:8188"
		}
		c := &client.ComfyAPIClient{BaseURL: url}
		c.Init()
		if err := c.SendPromptReplace(ctx, row.Positive, row.Negative, 0, 0); err != nil {
			return fmt.Errorf("send prompt: %w", err)
		}
		slog.Info("prompt sent", "url", url)
	}

	if *summarize {
		secrets, err := config.LoadSecrets(*secretsPath)
		if err != nil {
			return fmt.Errorf("load secrets: %w", err)
		}
		if secrets.DeepseekAPIKey() == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required for -summarize")
		}
		summary, err := llm.New(secrets.DeepseekAPIKey()).SummarizePrompt(ctx, row.Positive)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		fmt.Printf("Summary: %s\n", summary)
	}

	return nil
}

func listExtractions(ctx context.Context, store *database.Store, limit int, raw bool) error {
	rows, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		printExtraction(row, raw)
		fmt.Println()
	}
	return nil
}

func printExtraction(e database.Extraction, raw bool) {
	fmt.Printf("File: %s (%s)\n", e.FilePath, e.MediaKind)
	fmt.Printf("Positive: %s\n", e.Positive)
	fmt.Printf("Negative: %s\n", e.Negative)
	fmt.Printf("Leaves: %s\n", e.Leaves)
	if raw {
		fmt.Printf("Raw:\n%s\n", e.RawJSON)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"promptscan/internal/config"
	"promptscan/internal/database"
	"promptscan/internal/parser"
)

const batchSize = 25

func run() error {
	fromConfig := flag.String("config", "", "Path to config file")
	dir := flag.String("dir", "", "Path to a directory containing PNG/MP4 files")
	dbpath := flag.String("db", "", "Path to a sqlite or duckdb database (.duckdb for DuckDB)")
	flag.Parse()

	setupLogger()

	opts := parser.Options{}
	dbPath := *dbpath
	var dirs []string

	if *fromConfig != "" {
		k, err := config.LoadConfig(*fromConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts = parser.Options{
			FullScanThreshold: k.Int(config.FullScanThresholdKey),
			WindowSize:        k.Int(config.WindowBytesKey),
			BraceScanCap:      k.Int(config.BraceScanCapKey),
			MinLeafLen:        k.Int(config.MinLeafLenKey),
		}
		if dbPath == "" {
			dbPath = k.String(config.DBPathKey)
		}
		dirs = k.Strings(config.ScanPathsKey)
	}
	if *dir != "" {
		dirs = append(dirs, *dir)
	}
	if len(dirs) == 0 {
		flag.Usage()
		return fmt.Errorf("missing directory (use -dir or scan.paths in config)")
	}
	if dbPath == "" {
		dbPath = filepath.Join(dirs[0], "extractions.sqlite")
	}

	store, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	for _, d := range dirs {
		if err := loadDirectory(context.Background(), d, store, opts); err != nil {
			return err
		}
	}
	return nil
}

func setupLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
}

func kindForPath(path string) (parser.MediaKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return parser.MediaImage, true
	case ".mp4", ".m4v", ".mov", ".webm":
		return parser.MediaVideo, true
	}
	return "", false
}

func getMediaPaths(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := kindForPath(d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no media files found in %s", root)
	}
	return paths, nil
}

type fileResult struct {
	database.Extraction
	err error
}

func extractOne(path string, opts parser.Options) fileResult {
	kind, _ := kindForPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: fmt.Errorf("read %s: %w", path, err)}
	}
	res, err := parser.Extract(data, kind, opts)
	if err != nil && !errors.Is(err, parser.ErrMalformedMetadataJSON) {
		return fileResult{Extraction: database.Extraction{FilePath: path}, err: err}
	}
	leaves, _ := json.Marshal(res.TextLeaves)
	return fileResult{Extraction: database.Extraction{
		FilePath:  path,
		MediaKind: string(kind),
		RawJSON:   res.RawJSON,
		Positive:  res.Positive,
		Negative:  res.Negative,
		Leaves:    string(leaves),
	}}
}

func loadDirectory(ctx context.Context, root string, store *database.Store, opts parser.Options) error {
	paths, err := getMediaPaths(root)
	if err != nil {
		return fmt.Errorf("error getting media paths: %w", err)
	}

	existingPaths, err := store.ExistingPaths(ctx)
	if err != nil {
		return fmt.Errorf("error retrieving existing files: %w", err)
	}

	// Filter out files that are already in the database
	var filesToProcess []string
	for _, path := range paths {
		if _, exists := existingPaths[path]; !exists {
			filesToProcess = append(filesToProcess, path)
		}
	}

	skipped := len(paths) - len(filesToProcess)
	slog.Info("scanning directory", "root", root, "found", len(paths),
		"skipped", skipped, "new", len(filesToProcess))

	if len(filesToProcess) == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	filesCh := make(chan string, numWorkers)
	resultsCh := make(chan fileResult)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	worker := func() {
		defer wg.Done()
		for path := range filesCh {
			resultsCh <- extractOne(path, opts)
		}
	}
	for range numWorkers {
		go worker()
	}

	go func() {
		for _, p := range filesToProcess {
			filesCh <- p
		}
		close(filesCh)
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	processed := 0
	batch := make([]database.Extraction, 0, batchSize)
	for res := range resultsCh {
		processed++
		if res.err != nil {
			// No-metadata files are the norm in mixed directories; only
			// their paths are stored so rescans skip them.
			if !errors.Is(res.err, parser.ErrNoMetadataFound) {
				slog.Warn("extraction failed", "path", res.FilePath, "err", res.err)
			}
		}
		if res.FilePath != "" {
			batch = append(batch, res.Extraction)
		}
		if len(batch) >= batchSize {
			if err := store.InsertBatch(ctx, batch); err != nil {
				slog.Error("insert batch", "err", err)
			}
			batch = batch[:0]
		}
		fmt.Printf("\rProcessed %d/%d new files", processed, len(filesToProcess))
	}

	if len(batch) > 0 {
		if err := store.InsertBatch(ctx, batch); err != nil {
			slog.Error("insert batch", "err", err)
		}
	}

	fmt.Println("\nDone!")
	return nil
}

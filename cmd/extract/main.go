package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptscan/internal/parser"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "Path to a PNG or MP4 file")
	asJSON := flag.Bool("json", false, "Emit the result as JSON")
	showRaw := flag.Bool("raw", false, "Print the raw embedded JSON instead of the summary")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing file")
	}

	kind, err := kindForPath(*file)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	res, err := parser.Extract(data, kind, parser.Options{})
	if err != nil && !errors.Is(err, parser.ErrMalformedMetadataJSON) {
		return fmt.Errorf("extract %s: %w", *file, err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if *showRaw {
		fmt.Println(res.RawJSON)
		return nil
	}
	if *asJSON {
		out, err := json.MarshalIndent(map[string]any{
			"positive": res.Positive,
			"negative": res.Negative,
			"leaves":   res.TextLeaves,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Positive: %s\n", res.Positive)
	fmt.Printf("Negative: %s\n", res.Negative)
	for _, leaf := range res.TextLeaves {
		fmt.Printf("  leaf: %s\n", leaf)
	}
	return nil
}

func kindForPath(path string) (parser.MediaKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return parser.MediaImage, nil
	case ".mp4", ".m4v", ".mov", ".webm":
		return parser.MediaVideo, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", path)
}

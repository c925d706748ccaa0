// Package parser is the extraction entry point: it hands raw container
// bytes to the right scanner, classifies recovered JSON as a node graph
// and assembles the prompt summary. It performs no I/O; callers supply the
// bytes and decide the media kind from MIME type or file extension.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"promptscan/internal/graph"
	"promptscan/internal/mp4"
	"promptscan/png"
)

// Error kinds surfaced to callers. Everything inside graph resolution is
// absorbed as "no value"; only container-level and total-failure
// conditions propagate.
var (
	ErrUnsupportedMediaKind  = errors.New("unsupported media kind")
	ErrInvalidContainer      = errors.New("invalid container")
	ErrTruncatedContainer    = errors.New("truncated container")
	ErrNoMetadataFound       = errors.New("no metadata found")
	ErrMalformedMetadataJSON = errors.New("malformed metadata json")
)

// MediaKind selects the container scanner.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Options tunes the scan and filter policy. The zero value means defaults.
type Options struct {
	// FullScanThreshold is the size above which MP4 buffers are scanned
	// through head/tail windows instead of wholesale.
	FullScanThreshold int
	// WindowSize is the size of each MP4 head/tail window.
	WindowSize int
	// BraceScanCap bounds the forward scan when carving a JSON candidate.
	BraceScanCap int
	// MinLeafLen drops shorter strings from the text-leaf summary.
	MinLeafLen int
}

const defaultMinLeafLen = 4

// Result is the extraction output. Empty Positive/Negative means the
// structural resolution found nothing; TextLeaves still carries whatever
// plausible text the graph held.
type Result struct {
	RawJSON    string
	Positive   string
	Negative   string
	TextLeaves []string
}

// Extract locates embedded generation metadata in data and resolves its
// prompts. Pure and stateless; safe to call concurrently on independent
// buffers.
//
// When a PNG carries text chunks that fail to parse as a node graph,
// Extract returns ErrMalformedMetadataJSON together with a non-nil Result
// holding the raw text, so the caller can keep the partial recovery.
func Extract(data []byte, kind MediaKind, opts Options) (*Result, error) {
	if opts.MinLeafLen == 0 {
		opts.MinLeafLen = defaultMinLeafLen
	}
	switch kind {
	case MediaImage:
		return extractPNG(data, opts)
	case MediaVideo:
		return extractMP4(data, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaKind, kind)
}

func extractPNG(data []byte, opts Options) (*Result, error) {
	chunks, err := png.ExtractTextChunks(data)
	switch {
	case errors.Is(err, png.ErrNotPNG):
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	case errors.Is(err, png.ErrTruncated):
		return nil, fmt.Errorf("%w: %v", ErrTruncatedContainer, err)
	case errors.Is(err, png.ErrNoTextChunks):
		return nil, fmt.Errorf("%w: %v", ErrNoMetadataFound, err)
	case err != nil:
		return nil, err
	}

	// The prompt chunk carries the execution graph and resolves links;
	// the workflow chunk is the degraded UI serialisation. Try in that
	// order.
	for _, keyword := range []string{png.KeywordPrompt, png.KeywordWorkflow} {
		for _, c := range chunks {
			if c.Keyword != keyword {
				continue
			}
			var v any
			if err := json.Unmarshal([]byte(c.Text), &v); err != nil {
				continue
			}
			if g, ok := graph.Classify(v); ok {
				return assemble(c.Text, g, opts), nil
			}
		}
	}

	// Chunks exist but none parsed into a recognisable graph. PNG has one
	// authoritative candidate per keyword, so partial success beats total
	// failure: hand back the raw text with an empty summary alongside the
	// sentinel, and let the caller decide whether that is good enough.
	return &Result{RawJSON: chunks[0].Text}, fmt.Errorf("%w: keyword %q", ErrMalformedMetadataJSON, chunks[0].Keyword)
}

func extractMP4(data []byte, opts Options) (*Result, error) {
	scanner := mp4.Scanner{
		FullScanThreshold: opts.FullScanThreshold,
		WindowSize:        opts.WindowSize,
		BraceScanCap:      opts.BraceScanCap,
	}
	candidates, err := scanner.Candidates(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadataFound, err)
	}

	// Preference order: an API-format candidate that actually resolves a
	// prompt wins immediately; failing that, any API-format candidate;
	// failing that, the first UI/wrapper candidate.
	var fallback *Result
	var fallbackIsAPI bool
	for _, cand := range candidates {
		var v any
		if err := json.Unmarshal([]byte(cand), &v); err != nil {
			continue
		}
		g, ok := graph.Classify(v)
		if !ok {
			continue
		}
		res := assemble(cand, g, opts)
		if g.Format == graph.APIFormat && (res.Positive != "" || res.Negative != "") {
			return res, nil
		}
		if fallback == nil || (g.Format == graph.APIFormat && !fallbackIsAPI) {
			fallback = res
			fallbackIsAPI = g.Format == graph.APIFormat
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: no candidate parsed as a node graph", ErrNoMetadataFound)
	}
	return fallback, nil
}

// assemble shapes the final result; no resolution logic lives here.
func assemble(raw string, g *graph.NodeGraph, opts Options) *Result {
	positive, negative := g.Prompts()
	return &Result{
		RawJSON:    prettyJSON(raw),
		Positive:   positive,
		Negative:   negative,
		TextLeaves: g.TextLeaves(opts.MinLeafLen),
	}
}

// prettyJSON indents raw when it parses as JSON and leaves it verbatim
// otherwise. Indenting rather than re-marshalling keeps key order intact.
func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

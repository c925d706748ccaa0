package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DBPathKey            = "db.path"
	ScanPathsKey         = "scan.paths"
	FullScanThresholdKey = "scan.full_scan_threshold"
	WindowBytesKey       = "scan.window_bytes"
	BraceScanCapKey      = "scan.brace_scan_cap"
	MinLeafLenKey        = "resolver.min_leaf_len"
	ComfyUrlKey          = "comfy.url"
	LogLevelKey          = "log.level"
)

func LoadConfig(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		ComfyUrlKey:          "http://localhost:8188",
		DBPathKey:            "extractions.sqlite",
		FullScanThresholdKey: 50 << 20,
		WindowBytesKey:       15 << 20,
		BraceScanCapKey:      8 << 20,
		MinLeafLenKey:        4,
		LogLevelKey:          "info",
	}

	k.Load(confmap.Provider(defaults, "."), nil)

	err := k.Load(file.Provider(path), yaml.Parser())
	return k, err
}

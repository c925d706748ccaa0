// Package mp4 scans MP4 byte streams for embedded generation metadata
// without parsing the box structure. Generation tools write their JSON
// either into moov/udta boxes near the start of the file or append it near
// the end, so large files are scanned through a head window and a tail
// window only; the middle is never inspected.
package mp4

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNoCandidates = errors.New("no metadata candidates found")

// Defaults for the scan policy. All are overridable per call.
const (
	DefaultFullScanThreshold = 50 << 20
	DefaultWindowSize        = 15 << 20
	DefaultBraceScanCap      = 8 << 20
)

// anchors are literal substrings that strongly signal the embedded schema.
// Brace matching starts at each occurrence.
var anchors = []string{
	`{"nodes":`,
	`{"extra_data":`,
	`{"prompt":`,
	`{"workflow":`,
	`{"client_id":`,
	`{"extra_pnginfo":`,
}

// Scanner carves schema-plausible JSON object strings out of raw MP4 bytes.
// Zero-valued fields fall back to the package defaults.
type Scanner struct {
	FullScanThreshold int
	WindowSize        int
	BraceScanCap      int
}

// Candidates returns every balanced, schema-plausible JSON object found in
// the scanned region, in offset order. It never fails on malformed data;
// an empty result means ErrNoCandidates.
func (s Scanner) Candidates(data []byte) ([]string, error) {
	fullScan := s.FullScanThreshold
	if fullScan == 0 {
		fullScan = DefaultFullScanThreshold
	}
	window := s.WindowSize
	if window == 0 {
		window = DefaultWindowSize
	}
	bound := s.BraceScanCap
	if bound == 0 {
		bound = DefaultBraceScanCap
	}

	text := decodeRegion(data, fullScan, window)

	var candidates []string
	for pos := 0; pos < len(text); {
		offset, anchorLen := nextAnchor(text[pos:])
		if offset == -1 {
			break
		}
		start := pos + offset
		if obj, ok := carveObject(text[start:], bound); ok && plausible(obj) {
			candidates = append(candidates, obj)
		}
		pos = start + anchorLen
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// decodeRegion produces the text to scan: the whole buffer below the
// threshold, otherwise a head window and a tail window decoded
// independently and concatenated. Invalid UTF-8 runs are tolerated; the
// byte values the anchors and braces need survive either way.
func decodeRegion(data []byte, fullScan, window int) string {
	if len(data) <= fullScan {
		return strings.ToValidUTF8(string(data), "�")
	}
	head := strings.ToValidUTF8(string(data[:window]), "�")
	tail := strings.ToValidUTF8(string(data[len(data)-window:]), "�")
	return head + tail
}

func nextAnchor(text string) (offset, anchorLen int) {
	offset = -1
	for _, a := range anchors {
		if i := strings.Index(text, a); i != -1 && (offset == -1 || i < offset) {
			offset = i
			anchorLen = len(a)
		}
	}
	return offset, anchorLen
}

// carveObject scans forward from an opening brace tracking depth (string
// and escape aware) and returns the balanced object. The scan is bounded:
// if depth never returns to zero within bound bytes the candidate is
// discarded, which keeps adversarial or corrupt input from running away.
func carveObject(text string, bound int) (string, bool) {
	limit := len(text)
	if limit > bound {
		limit = bound
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < limit; i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[:i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}

// plausible gates carved blobs before they are treated as metadata:
// brace matching can just as well capture unrelated JSON fragments from
// other embedded data.
func plausible(obj string) bool {
	if !gjson.Valid(obj) {
		return false
	}
	v := gjson.Parse(obj)
	if v.Get("nodes").IsArray() {
		return true
	}
	for _, key := range []string{"extra_data", "extra_pnginfo", "prompt", "workflow"} {
		if v.Get(key).Exists() {
			return true
		}
	}
	// Bare API-format graph: node bodies carry inputs/class_type.
	apiShaped := false
	v.ForEach(func(_, value gjson.Result) bool {
		if value.Get("inputs").Exists() || value.Get("class_type").Exists() {
			apiShaped = true
			return false
		}
		return true
	})
	return apiShaped
}

package mp4_test

import (
	"bytes"
	"strings"
	"testing"

	"promptscan/internal/mp4"

	"github.com/stretchr/testify/require"
)

const apiGraph = `{"prompt":{"3":{"class_type":"KSampler","inputs":{"positive":["5",0]}},"5":{"class_type":"CLIPTextEncode","inputs":{"text":"a red fox"}}}}`

// surround buries payload between binary-looking junk the way real mdat
// data surrounds embedded metadata.
func surround(payload string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x01, 0x20, 'f', 't', 'y', 'p'})
	buf.Write(bytes.Repeat([]byte{0xFF, 0x00, 0xAB}, 64))
	buf.WriteString(payload)
	buf.Write(bytes.Repeat([]byte{0x7F, 0x13}, 64))
	return buf.Bytes()
}

func TestCandidatesFindsAnchoredObject(t *testing.T) {
	cands, err := mp4.Scanner{}.Candidates(surround(apiGraph))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, apiGraph, cands[0])
}

func TestCandidatesRejectsImplausibleJSON(t *testing.T) {
	// Balanced JSON hit by an anchor but with none of the schema markers:
	// the blob parses, yet carries neither nodes nor graph-shaped entries.
	_, err := mp4.Scanner{}.Candidates(surround(`{"client_id": 7}`))
	require.ErrorIs(t, err, mp4.ErrNoCandidates)
}

func TestCandidatesNoAnchors(t *testing.T) {
	_, err := mp4.Scanner{}.Candidates(bytes.Repeat([]byte{0xDE, 0xAD}, 512))
	require.ErrorIs(t, err, mp4.ErrNoCandidates)
}

func TestCandidatesUnbalancedIsSkipped(t *testing.T) {
	// Depth never returns to zero: the candidate is dropped, not fatal.
	_, err := mp4.Scanner{}.Candidates([]byte(`{"nodes": [ {"id": 1`))
	require.ErrorIs(t, err, mp4.ErrNoCandidates)
}

func TestCandidatesBracesInsideStrings(t *testing.T) {
	payload := `{"prompt":{"1":{"class_type":"X","inputs":{"text":"curly } brace { soup"}}}}`
	cands, err := mp4.Scanner{}.Candidates(surround(payload))
	require.NoError(t, err)
	require.Equal(t, payload, cands[0])
}

func TestCandidatesBraceScanCap(t *testing.T) {
	// The balanced end lies beyond the bound; the scan must give up.
	payload := `{"nodes": [` + strings.Repeat(`"x",`, 100) + `"x"]}`
	s := mp4.Scanner{BraceScanCap: 32}
	_, err := s.Candidates(surround(payload))
	require.ErrorIs(t, err, mp4.ErrNoCandidates)
}

func TestCandidatesWindowedScanBoundary(t *testing.T) {
	// Above the full-scan threshold only head and tail windows are
	// decoded. A qualifying object at the start is found; one placed in
	// the middle, outside both windows, never is.
	const (
		threshold = 4096
		window    = 1024
	)
	startObj := apiGraph
	middleObj := `{"prompt":{"9":{"class_type":"CLIPTextEncode","inputs":{"text":"middle secret"}}}}`

	size := threshold * 4
	buf := bytes.Repeat([]byte{0xEE}, size)
	copy(buf, startObj)
	copy(buf[size/2:], middleObj)

	s := mp4.Scanner{FullScanThreshold: threshold, WindowSize: window}
	cands, err := s.Candidates(buf)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, startObj, cands[0])

	// Below the threshold the same middle object is found by a full scan.
	full := mp4.Scanner{FullScanThreshold: size * 2, WindowSize: window}
	cands, err = full.Candidates(buf)
	require.NoError(t, err)
	require.Len(t, cands, 2)
}

func TestCandidatesMultipleAnchors(t *testing.T) {
	a := `{"nodes":[{"id":1}]}`
	b := apiGraph
	data := surround(a + "garbage bytes" + b)
	cands, err := mp4.Scanner{}.Candidates(data)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	require.Equal(t, a, cands[0])
	require.Equal(t, b, cands[1])
}

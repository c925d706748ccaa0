// Package png walks PNG chunks to recover the textual metadata that
// node-based generation tools embed in tEXt/iTXt chunks. It never touches
// pixel data.
package png

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	ErrNotPNG       = errors.New("not a valid PNG")
	ErrTruncated    = errors.New("truncated PNG chunk data")
	ErrNoTextChunks = errors.New("no qualifying text chunks")
)

// PNG signature: 137 80 78 71 13 10 26 10
var signature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// Keywords recognised as embedded generation metadata.
const (
	KeywordPrompt   = "prompt"
	KeywordWorkflow = "workflow"
)

// TextChunk is one decoded tEXt/iTXt chunk with a qualifying keyword,
// in file order.
type TextChunk struct {
	Keyword string
	Text    string
}

// ExtractTextChunks walks the chunk sequence of data and returns every
// tEXt/iTXt chunk whose keyword is exactly "prompt" or "workflow".
//
// The CRC trailing each chunk is not validated; the walker only needs to
// stay in sync, so it advances by 12+length for every chunk type.
func ExtractTextChunks(data []byte) ([]TextChunk, error) {
	if len(data) < len(signature) || !bytes.Equal(data[:4], signature[:4]) {
		return nil, ErrNotPNG
	}

	var chunks []TextChunk
	offset := len(signature)
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkType := string(data[offset+4 : offset+8])
		dataStart := offset + 8
		dataEnd := dataStart + length
		if dataEnd+4 > len(data) {
			// Declared length runs past the buffer. Keep whatever was
			// already recovered; otherwise report the file as malformed.
			if len(chunks) > 0 {
				return chunks, nil
			}
			return nil, ErrTruncated
		}

		if chunkType == "tEXt" || chunkType == "iTXt" {
			if c, ok := decodeTextChunk(chunkType, data[dataStart:dataEnd]); ok {
				chunks = append(chunks, c)
			}
		}
		offset += length + 12
	}

	if len(chunks) == 0 {
		return nil, ErrNoTextChunks
	}
	return chunks, nil
}

// decodeTextChunk splits keyword\0text and filters on the keyword. iTXt
// payloads carry compression-flag/language/translated-keyword fields after
// the NUL; rather than parse them we strip the leading run of control
// bytes, accepting that compressed iTXt text will come out as garbage.
func decodeTextChunk(chunkType string, payload []byte) (TextChunk, bool) {
	nul := bytes.IndexByte(payload, 0)
	if nul == -1 {
		return TextChunk{}, false
	}
	keyword := string(payload[:nul])
	if keyword != KeywordPrompt && keyword != KeywordWorkflow {
		return TextChunk{}, false
	}
	text := payload[nul+1:]
	if chunkType == "iTXt" {
		for len(text) > 0 && text[0] <= 0x1F {
			text = text[1:]
		}
	}
	return TextChunk{Keyword: keyword, Text: string(text)}, true
}

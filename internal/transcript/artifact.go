package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is the byte sequence some workers prepend to JSON output.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte-order mark, if any.
func StripBOM(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, utf8BOM) {
		return data, nil
	}
	// BOMOverride consumes the mark and decodes the rest as UTF-8.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("strip byte-order mark: %w", err)
	}
	return out, nil
}

// ParseArtifact decodes a worker result document.
// The document must be a JSON object holding at least one turn with segments.
// Segment text is normalized with NormalizeText.
func ParseArtifact(data []byte) (Transcript, error) {
	clean, err := StripBOM(data)
	if err != nil {
		return Transcript{}, err
	}

	var doc struct {
		Segments *[]SpeakerTurn `json:"segments"`
	}
	if err := json.Unmarshal(clean, &doc); err != nil {
		return Transcript{}, fmt.Errorf("decode result json: %w", err)
	}
	if doc.Segments == nil {
		return Transcript{}, fmt.Errorf("decode result json: missing \"segments\" field")
	}

	t := Transcript{Turns: *doc.Segments}
	for i := range t.Turns {
		for j := range t.Turns[i].Segments {
			t.Turns[i].Segments[j].Text = NormalizeText(t.Turns[i].Segments[j].Text)
		}
	}
	if t.SegmentCount() == 0 {
		return Transcript{}, fmt.Errorf("result has no segments: %w", ErrNoTurns)
	}
	if err := t.Validate(); err != nil {
		return Transcript{}, fmt.Errorf("invalid result: %w", err)
	}
	return t, nil
}

// ReadArtifact reads and parses the result file at path.
func ReadArtifact(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, err
	}
	return ParseArtifact(data)
}

// MarshalArtifact encodes t in the worker's result schema.
func MarshalArtifact(t Transcript) ([]byte, error) {
	doc := struct {
		Segments []SpeakerTurn `json:"segments"`
	}{Segments: t.Turns}
	if doc.Segments == nil {
		doc.Segments = []SpeakerTurn{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

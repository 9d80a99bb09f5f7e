package workspace

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingResult describes what a source file is encoded as. Model files
// are overwhelmingly UTF-8, but editors on Windows still produce UTF-16
// and legacy single-byte files, so pulls and pushes normalize first.
type EncodingResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	HasBOM     bool    `json:"has_bom"`
}

const maxSampleSize = 8192

func DetectEncoding(data []byte) EncodingResult {
	if len(data) == 0 {
		return EncodingResult{Encoding: "utf-8", Confidence: 1.0}
	}

	if result := detectBOM(data); result.Confidence == 1.0 {
		return result
	}

	sample := data
	if len(sample) > maxSampleSize {
		sample = data[:maxSampleSize]
	}

	// NUL bytes never appear in textual models, so their presence means
	// BOM-less UTF-16 rather than ASCII text.
	if bytes.IndexByte(sample, 0) >= 0 {
		if score := scoreUTF16(sample, 1); score > 0 {
			return EncodingResult{Encoding: "utf-16le", Confidence: score}
		}
		if score := scoreUTF16(sample, 0); score > 0 {
			return EncodingResult{Encoding: "utf-16be", Confidence: score}
		}
	}

	if isASCII(sample) {
		return EncodingResult{Encoding: "ascii", Confidence: 1.0}
	}
	if utf8.Valid(sample) {
		return EncodingResult{Encoding: "utf-8", Confidence: 0.95}
	}

	// Bytes in 0x80..0x9F are control characters in ISO-8859-1 but
	// printable in Windows-1252, so their presence tips the call.
	for _, b := range sample {
		if b >= 0x80 && b <= 0x9F {
			return EncodingResult{Encoding: "windows-1252", Confidence: 0.7}
		}
	}
	return EncodingResult{Encoding: "iso-8859-1", Confidence: 0.6}
}

func detectBOM(data []byte) EncodingResult {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte{0xEF, 0xBB, 0xBF}) {
		return EncodingResult{Encoding: "utf-8", Confidence: 1.0, HasBOM: true}
	}
	if len(data) >= 2 {
		if bytes.Equal(data[:2], []byte{0xFF, 0xFE}) {
			return EncodingResult{Encoding: "utf-16le", Confidence: 1.0, HasBOM: true}
		}
		if bytes.Equal(data[:2], []byte{0xFE, 0xFF}) {
			return EncodingResult{Encoding: "utf-16be", Confidence: 1.0, HasBOM: true}
		}
	}
	return EncodingResult{}
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 127 {
			return false
		}
	}
	return true
}

// scoreUTF16 checks whether every other byte (at the given offset within
// each pair) is mostly zero, which is what UTF-16 text in the Latin range
// looks like without a BOM.
func scoreUTF16(data []byte, zeroOffset int) float64 {
	if len(data) < 2 || len(data)%2 != 0 {
		return 0
	}

	nullCount := 0
	for i := zeroOffset; i < len(data); i += 2 {
		if data[i] == 0 {
			nullCount++
		}
	}

	if float64(nullCount)/float64(len(data)/2) > 0.75 {
		return 0.8
	}
	return 0
}

func NormalizeToUTF8(data []byte, detected EncodingResult) string {
	data = stripBOM(data, detected)

	switch detected.Encoding {
	case "ascii":
		return string(data)
	case "utf-8":
		return string(bytes.ToValidUTF8(data, []byte("�")))
	case "utf-16le":
		return decodeWithFallback(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case "utf-16be":
		return decodeWithFallback(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case "windows-1252":
		return decodeWithFallback(data, charmap.Windows1252.NewDecoder())
	case "iso-8859-1":
		return decodeWithFallback(data, charmap.ISO8859_1.NewDecoder())
	default:
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
}

func stripBOM(data []byte, detected EncodingResult) []byte {
	if !detected.HasBOM {
		return data
	}

	switch detected.Encoding {
	case "utf-8":
		if len(data) >= 3 {
			return data[3:]
		}
	case "utf-16le", "utf-16be":
		if len(data) >= 2 {
			return data[2:]
		}
	}
	return data
}

func decodeWithFallback(data []byte, decoder *encoding.Decoder) string {
	if len(data) == 0 {
		return ""
	}

	reader := transform.NewReader(bytes.NewReader(data), decoder)
	result, err := io.ReadAll(reader)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return string(bytes.ToValidUTF8(result, []byte("�")))
}

// ReadFileAsUTF8 reads a model source file and returns its content
// normalized to UTF-8 along with what was detected.
func ReadFileAsUTF8(path string) (string, EncodingResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", EncodingResult{}, err
	}

	detected := DetectEncoding(data)
	return NormalizeToUTF8(data, detected), detected, nil
}

// Package images handles everything around embedded image references:
// scanning document text for them, downloading the assets, tracking the
// URL-to-local-path mapping per document, and identifying image formats
// from their leading bytes.
package images

import (
	"bytes"
	"io"
	"os"
)

// Kind identifies an image format detected from magic bytes.
type Kind int

// Supported image formats.
const (
	Unknown Kind = iota
	PNG
	JPEG
	GIF
	WEBP
)

// PlaceholderExt is assigned when the true image type is not yet known
// from the URL, pending byte-level sniffing.
const PlaceholderExt = ".img"

// sniffLen is the number of leading bytes needed to identify all
// supported formats (WEBP needs bytes 8-11).
const sniffLen = 12

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegPrefix   = []byte{0xff, 0xd8, 0xff}
	gif87Header  = []byte("GIF87a")
	gif89Header  = []byte("GIF89a")
	riffHeader   = []byte("RIFF")
	webpHeader   = []byte("WEBP")
)

// Ext returns the file extension for the kind, or an empty string for
// Unknown.
func (k Kind) Ext() string {
	switch k {
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	case GIF:
		return ".gif"
	case WEBP:
		return ".webp"
	default:
		return ""
	}
}

// String returns the lower-case format name.
func (k Kind) String() string {
	switch k {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case WEBP:
		return "webp"
	default:
		return "unknown"
	}
}

// Detect identifies the image format from the leading bytes of data.
// Truncated or unrecognised content yields Unknown.
func Detect(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return PNG
	case bytes.HasPrefix(data, jpegPrefix):
		return JPEG
	case bytes.HasPrefix(data, gif87Header), bytes.HasPrefix(data, gif89Header):
		return GIF
	case len(data) >= sniffLen &&
		bytes.Equal(data[0:4], riffHeader) &&
		bytes.Equal(data[8:12], webpHeader):
		return WEBP
	default:
		return Unknown
	}
}

// DetectFile reads the first bytes of the file at path and identifies
// its image format. Unreadable files yield Unknown.
func DetectFile(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return Unknown
	}
	return Detect(buf[:n])
}

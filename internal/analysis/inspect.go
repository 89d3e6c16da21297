package analysis

import (
	"bytes"
	"image"
	"net/http"
	"strings"

	// Formats accepted for analysis.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pkt.systems/tabforge/schema"
)

// Upload describes an accepted image.
type Upload struct {
	MIME   string
	Format string
	Width  int
	Height int
}

// Inspect checks that data is an image and reports its media type. Decodable
// formats are identified by header; other content must sniff as image/*.
func Inspect(data []byte) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, schema.ErrNoImage
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return Upload{MIME: "image/" + format, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return Upload{MIME: sniffed, Format: strings.TrimPrefix(sniffed, "image/")}, nil
	}
	return Upload{}, schema.ErrNotImage
}

package storage

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"greenhouse.org/growersplatform/pkg/apperror"
)

// Allowed maps accepted MIME types to the extension stored files get.
type Allowed map[string]string

var (
	ImageTypes = Allowed{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
	MediaTypes = Allowed{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"video/mp4":       ".mp4",
		"video/webm":      ".webm",
		"video/quicktime": ".mov",
	}
)

// Sniff detects the content type from data itself; the client's declared type is ignored.
func Sniff(data []byte, allowed Allowed) (mime, ext string, err error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return m.String(), ext, nil
		}
	}
	return "", "", fmt.Errorf("file type %s is not allowed: %w", detected.String(), apperror.ErrInvalidInput)
}

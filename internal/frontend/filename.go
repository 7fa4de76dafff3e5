package frontend

import (
	"fmt"
	"mime"
	"strings"
	"time"
)

const defaultExtension = "png"

// extensionFromMime derives a file extension from an image mime type.
// Unparseable or non-image types fall back to png.
func extensionFromMime(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultExtension
	}
	subtype, ok := strings.CutPrefix(mediaType, "image/")
	if !ok || subtype == "" {
		return defaultExtension
	}
	// image/svg+xml -> svg
	if idx := strings.Index(subtype, "+"); idx > 0 {
		subtype = subtype[:idx]
	}
	return subtype
}

// DownloadFilename builds the export filename for a stylized result.
func DownloadFilename(mimeType string, ts time.Time) string {
	return fmt.Sprintf("stylized-image-%d.%s", ts.Unix(), extensionFromMime(mimeType))
}

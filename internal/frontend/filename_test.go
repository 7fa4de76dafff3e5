package frontend

import (
	"strings"
	"testing"
	"time"
)

func TestExtensionFromMime(t *testing.T) {
	tests := []struct {
		mimeType string
		expected string
	}{
		{"image/jpeg", "jpeg"},
		{"image/png", "png"},
		{"image/webp", "webp"},
		{"image/svg+xml", "svg"},
		{"image/png; charset=utf-8", "png"},
		{"", "png"},
		{"garbage", "png"},
		{"text/plain", "png"},
		{"image/", "png"},
	}
	for _, tt := range tests {
		if got := extensionFromMime(tt.mimeType); got != tt.expected {
			t.Errorf("extensionFromMime(%q) = %q; expected %q", tt.mimeType, got, tt.expected)
		}
	}
}

func TestDownloadFilename(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	name := DownloadFilename("image/jpeg", ts)
	if name != "stylized-image-1700000000.jpeg" {
		t.Errorf("unexpected filename: %s", name)
	}

	name = DownloadFilename("not a mime type", ts)
	if !strings.HasSuffix(name, ".png") {
		t.Errorf("expected png fallback, got %s", name)
	}
	if !strings.HasPrefix(name, "stylized-image-") {
		t.Errorf("expected stylized-image prefix, got %s", name)
	}
}

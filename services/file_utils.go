package services

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/bbasli/bdrive/models"
)

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	replacer := strings.NewReplacer("..", "_", "/", "_", "\\", "_")
	return replacer.Replace(name)
}

// contentMatchesType reports whether a stored object's content type fits the
// declared file type. Unknown content types are accepted.
func contentMatchesType(fileType models.FileType, contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return true
	}

	switch fileType {
	case models.FileTypeImage:
		return strings.HasPrefix(mediaType, "image/")
	case models.FileTypePDF:
		return mediaType == "application/pdf"
	case models.FileTypeCSV:
		return strings.HasPrefix(mediaType, "text/") ||
			mediaType == "application/csv" ||
			mediaType == "application/vnd.ms-excel"
	}
	return false
}

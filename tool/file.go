package tool

import (
	"mime"
	"path/filepath"
	"strings"
)

// UnknownMimeType is used when detection fails entirely.
const UnknownMimeType = "unknown/unknown"

// DetectMimeType resolves a MIME type for a file. An explicit declared
// type wins; otherwise the extension is consulted.
func DetectMimeType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		return declared
	}
	if ext := filepath.Ext(filename); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			// strip parameters like "; charset=utf-8"
			if idx := strings.Index(byExt, ";"); idx > 0 {
				byExt = byExt[:idx]
			}
			return strings.TrimSpace(byExt)
		}
	}
	return UnknownMimeType
}

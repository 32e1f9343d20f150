package constants

import "strings"

// PDFMimeType is the only content type accepted for invoice uploads.
const PDFMimeType = "application/pdf"

// MaxUploadBytes caps a single submitted invoice file.
const MaxUploadBytes = 10 * 1024 * 1024 // 10 MiB

// AllowedExtensions holds the allowed file extensions for invoice ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether the extension (with or without dot) is ingestible.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

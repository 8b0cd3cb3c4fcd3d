package constants

import "strings"

// MediaTypePDF is the only document format accepted for ingestion.
const MediaTypePDF = "application/pdf"

// StorageKeyLayout is the timestamp prefix of object store keys: "{timestamp}_{filename}".
const StorageKeyLayout = "2006-01-02_15:04:05.000000"

// AllowedExtensions holds the file extensions accepted for regulation uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

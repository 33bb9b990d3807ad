package utils

import (
	"path"
	"strings"
)

// SanitizeFileName strips characters that break headers, multipart parts and object keys.
func SanitizeFileName(name string) string {
	clean := strings.TrimSpace(name)
	clean = strings.ReplaceAll(clean, "\\", "/")
	clean = path.Base(clean)
	clean = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '"', 0:
			return -1
		}
		return r
	}, clean)
	if clean == "" || clean == "." || clean == "/" {
		return "file"
	}
	return clean
}

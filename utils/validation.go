package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._\s-]`)

// SanitizeFilename cleans filename for safe storage by removing dangerous characters
// and limiting length. It trims spaces and dots, removes parent directory references,
// and filters out non-alphanumeric characters except for safe punctuation.
func SanitizeFilename(filename string) string {
	sanitized := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	sanitized = strings.Trim(sanitized, " .")
	sanitized = strings.ReplaceAll(sanitized, "..", "")
	sanitized = unsafeFilenameChars.ReplaceAllString(sanitized, "")
	if len(sanitized) > 255 {
		sanitized = sanitized[:255]
	}
	if sanitized == "" {
		return "upload"
	}
	return sanitized
}

// VerifyFileExists checks if file exists at the given path and is not a directory.
func VerifyFileExists(workspaceDir, filename string) bool {
	info, err := os.Stat(filepath.Join(workspaceDir, filename))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SessionWorkspace returns the per-session directory under root.
func SessionWorkspace(root, sessionID string) string {
	return filepath.Join(root, SanitizeFilename(sessionID))
}

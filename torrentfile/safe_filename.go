package torrentfile

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxFilenameLen = 180

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// safeFilename derives a filesystem-safe name from name: NFKC-normalized,
// path separators and control characters replaced with "_", surrounding
// whitespace and dots trimmed, and truncated to maxFilenameLen bytes. If
// the result is empty, fallback is returned unchanged instead.
func safeFilename(name, fallback string) string {
	s := norm.NFKC.String(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = controlChars.ReplaceAllString(s, "_")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		return fallback
	}
	if len(s) > maxFilenameLen {
		s = strings.TrimRight(s[:maxFilenameLen], " ")
	}
	return s
}

package document

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	base = truncateRunes(base, 80)
	if base == "" {
		base = "export"
	}

	return base + ext
}

// ExportFilename names the full workbook export
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("DocScan_Export_%s.xlsx", now.Format("20060102_1504"))
}

// FilteredExportFilename names a workbook export restricted by filter
func FilteredExportFilename(filter Filter, now time.Time) string {
	scope := filter.Client
	if scope == "" {
		scope = string(filter.Type)
	}
	if scope == "" {
		return ExportFilename(now)
	}
	return sanitizeFilename(fmt.Sprintf("DocScan_%s_%s.xlsx", scope, now.Format("20060102_1504")))
}

// SingleExportFilename names the workbook export of one document
func SingleExportFilename(doc *Document) string {
	base := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	return sanitizeFilename(fmt.Sprintf("%s_%s_%s.xlsx", doc.Client, doc.Type, base))
}

func truncateRunes(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

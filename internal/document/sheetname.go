package document

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// MaxSheetNameLength is the spreadsheet limit on sheet name length. It is
// counted in UTF-16 units, so characters outside the BMP count twice.
const MaxSheetNameLength = 31

var sheetNameReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_", "[", "_", "]", "_",
)

// SanitizeSheetName maps a label to a valid sheet name of at most maxLen
// characters. Forbidden and control characters become "_". Longer names are truncated. Applying it twice gives the
// same result as applying it once.
func SanitizeSheetName(label string, maxLen int) string {
	name := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, sheetNameReplacer.Replace(label))
	name = truncateUTF16(name, maxLen)

	// Sheet names may not begin or end with an apostrophe
	if strings.HasPrefix(name, "'") {
		name = "_" + name[1:]
	}
	if strings.HasSuffix(name, "'") {
		name = name[:len(name)-1] + "_"
	}
	return name
}

func truncateUTF16(s string, maxLen int) string {
	n := 0
	for i, r := range s {
		n += utf16.RuneLen(r)
		if n > maxLen {
			return s[:i]
		}
	}
	return s
}

// sheetNamer hands out sanitized sheet names that are unique within one
// workbook. Names compare case-insensitively, as spreadsheet
// applications do.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]bool)}
}

// Name returns the sanitized label, suffixed with " (n)" when it collides
// with a name already handed out
func (n *sheetNamer) Name(label string) string {
	base := SanitizeSheetName(label, MaxSheetNameLength)
	if base == "" {
		base = "Sheet"
	}
	name := base
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = SanitizeSheetName(truncateUTF16(base, MaxSheetNameLength-len(suffix))+suffix, MaxSheetNameLength)
	}
	n.used[strings.ToLower(name)] = true
	return name
}

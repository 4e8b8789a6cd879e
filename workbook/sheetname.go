package workbook

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxSheetNameLength is the spreadsheet limit on sheet names, in characters.
const MaxSheetNameLength = 31

const defaultSheetName = "Employee"

var forbiddenSheetChars = strings.NewReplacer(
	"[", "", "]", "", "*", "", "?", "", "/", "", "\\", "", ":", "",
)

// SheetNamer hands out unique, valid sheet names. Names compare
// case-insensitively, as spreadsheet applications do.
type SheetNamer struct {
	used map[string]bool
}

// NewSheetNamer reserves the given names.
func NewSheetNamer(reserved ...string) *SheetNamer {
	n := &SheetNamer{used: make(map[string]bool)}
	for _, name := range reserved {
		n.used[strings.ToLower(name)] = true
	}
	return n
}

// Name sanitizes name (no forbidden characters, no leading or trailing
// apostrophe) and de-duplicates it with _1, _2, ... suffixes,
// keeping the result within MaxSheetNameLength.
func (n *SheetNamer) Name(name string) string {
	base := strings.TrimFunc(forbiddenSheetChars.Replace(name), trimmable)
	base = strings.TrimRightFunc(truncateRunes(base, MaxSheetNameLength), trimmable)
	if base == "" {
		base = defaultSheetName
	}
	final := base
	for i := 1; n.used[strings.ToLower(final)]; i++ {
		suffix := "_" + strconv.Itoa(i)
		final = truncateRunes(base, MaxSheetNameLength-len(suffix)) + suffix
	}
	n.used[strings.ToLower(final)] = true
	return final
}

// trimmable runes cannot open or close a sheet name.
func trimmable(r rune) bool {
	return r == '\'' || unicode.IsSpace(r)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

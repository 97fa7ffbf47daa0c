package export

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// MaxSheetNameLength is the spreadsheet format's limit, in characters.
const MaxSheetNameLength = 31

const fallbackSheetName = "Sheet"

var invalidSheetChars = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_",
	"*", "_", "[", "_", "]", "_",
)

// SheetName converts a source name into a legal sheet name: forbidden
// characters become "_", surrounding apostrophes are dropped, and the
// result is truncated to MaxSheetNameLength characters.
func SheetName(source string) string {
	name := invalidSheetChars.Replace(source)
	name = strings.TrimLeft(name, "'")
	name = strings.TrimRight(truncate(name, MaxSheetNameLength), "'")
	if strings.TrimSpace(name) == "" {
		return fallbackSheetName
	}
	return name
}

// sheetNames returns one distinct sheet name per table. Names that collide
// (case-insensitively, as the format compares them) get "~2", "~3", ...
// while staying within MaxSheetNameLength.
func sheetNames(tables []core.ParsedTable) []string {
	used := make(map[string]bool, len(tables))
	names := make([]string, len(tables))

	for i, t := range tables {
		base := SheetName(t.SourceName)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := "~" + strconv.Itoa(n)
			name = strings.TrimRight(truncate(base, MaxSheetNameLength-len(suffix)), "'") + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

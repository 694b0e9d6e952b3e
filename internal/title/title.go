// Package title turns uploaded file names into canonical catalog keys.
package title

import (
	"path"
	"strings"
	"unicode"
)

// Extensions lists the ebook formats the catalog accepts, lower case with the dot.
var Extensions = []string{".pdf", ".epub", ".mobi", ".txt"}

// Supported reports whether fileName ends in one of Extensions (case-insensitive).
func Supported(fileName string) bool {
	return extension(fileName) != ""
}

func extension(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	for _, e := range Extensions {
		if ext == e {
			return e
		}
	}
	return ""
}

// Normalize strips a recognized ebook extension, replaces punctuation with
// spaces and collapses whitespace. The result may be empty.
func Normalize(fileName string) string {
	if ext := extension(fileName); ext != "" {
		fileName = fileName[:len(fileName)-len(ext)]
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '_' || r == '-' {
			return r
		}
		// Combining marks belong to the preceding letter.
		if unicode.In(r, unicode.Mn, unicode.Mc) {
			return r
		}
		return ' '
	}, fileName)

	return strings.Join(strings.Fields(cleaned), " ")
}

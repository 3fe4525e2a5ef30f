package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidFileName is returned when an uploaded file name cannot be made safe.
var ErrInvalidFileName = errors.New("invalid file name")

const maxFileNameLen = 180

// SanitizeFileName flattens an uploaded recording name into a single key segment.
// Separators, control runes and shell-hostile punctuation become '_'. Over-long names
// are cut to maxFileNameLen bytes while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r), strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if strings.Trim(s, "_") == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		ext := path.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "_")
	}
	return s, nil
}

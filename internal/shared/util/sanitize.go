package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 128

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a client-supplied name into a single safe path
// segment. Separators and control characters become underscores, so dots
// inside a name are harmless; only "." and ".." on their own are rejected.
// The result is capped at maxFileNameLen bytes, keeping the extension.
func SanitizeFileName(name string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" || s == "." || s == ".." {
		return "", errInvalidFileName
	}
	if len(s) > maxFileNameLen {
		ext := ""
		if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 8 {
			ext = s[i:]
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}

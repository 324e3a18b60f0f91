package server

import "github.com/saurabh-saran/ChatUI/pkg/i18n"

// __ translates user-facing error strings. Log output stays in English.
func __(message string) string {
	return i18n.Translate(message)
}

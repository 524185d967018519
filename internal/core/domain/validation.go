package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation Helpers

const MaxEntryNameLength = 64

var macRegex = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

// IsValidMAC checks if the string is a valid MAC address
func IsValidMAC(mac string) bool {
	return macRegex.MatchString(mac)
}

// IsValidEntryName checks a user-supplied speaker name: non-blank, bounded, printable.
func IsValidEntryName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxEntryNameLength {
		return false
	}
	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// NormalizeAddress upper-cases an address and converts dashes to colons.
// Non-MAC identifiers (platform UUIDs on macOS) are returned trimmed but otherwise unchanged.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if IsValidMAC(addr) {
		return strings.ToUpper(strings.ReplaceAll(addr, "-", ":"))
	}
	return addr
}

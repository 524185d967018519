package normalizer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// manufacturerPrefixLen bytes lead every payload before any name text.
	manufacturerPrefixLen = 2
	// minNameBytes is the shortest remainder worth decoding.
	minNameBytes = 2
)

type textDecoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// nameDecoders are tried in order; the first printable result wins.
var nameDecoders = []textDecoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "utf-16", decode: decodeUTF16},
	{name: "latin-1", decode: decodeWith(charmap.ISO8859_1)},
}

var utf16Encoding = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeUTF16(b []byte) (string, bool) {
	if len(b)%2 != 0 {
		return "", false
	}
	return decodeWith(utf16Encoding)(b)
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		s := string(out)
		// x/text substitutes U+FFFD for malformed input instead of failing.
		if strings.ContainsRune(s, utf8.RuneError) {
			return "", false
		}
		return s, true
	}
}

// isPrintableASCII reports whether every rune lies in [0x20, 0x7E).
func isPrintableASCII(s string) bool {
	for _, r := range s {
		if r < 0x20 || r >= 0x7E {
			return false
		}
	}
	return true
}

// DecodeManufacturerName recovers a device name from one manufacturer-data payload.
// The first two bytes are skipped; the remainder is decoded as UTF-8, UTF-16 and
// Latin-1 in that order. It returns the trimmed name and the encoding that produced it.
func DecodeManufacturerName(payload []byte) (name string, encodingName string, ok bool) {
	if len(payload) < manufacturerPrefixLen+minNameBytes {
		return "", "", false
	}
	body := payload[manufacturerPrefixLen:]

	for _, dec := range nameDecoders {
		text, ok := dec.decode(body)
		if !ok || !isPrintableASCII(text) {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		return text, dec.name, true
	}
	return "", "", false
}

// recoverName walks manufacturer data in ascending company-ID order and returns
// the first name that decodes.
func recoverName(data map[uint16][]byte, ids []uint16) (string, bool) {
	for _, id := range ids {
		if name, _, ok := DecodeManufacturerName(data[id]); ok {
			return name, true
		}
	}
	return "", false
}

func sortedCompanyIDs(data map[uint16][]byte) []uint16 {
	if len(data) == 0 {
		return nil
	}
	ids := make([]uint16, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

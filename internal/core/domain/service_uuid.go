package domain

import (
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
)

// baseUUID is the Bluetooth base UUID 00000000-0000-1000-8000-00805F9B34FB.
var baseUUID = uuid.UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}

// AudioProfiles are the 16-bit service classes a scanner checks for when the
// platform only answers membership queries instead of listing UUIDs.
var AudioProfiles = []uint16{0x110B, 0x1108, 0x111E, 0x110A, 0x110C}

// Audio profile service classes, in canonical form.
var (
	UUIDAudioSink    = ShortUUID(0x110B) // A2DP sink
	UUIDHeadset      = ShortUUID(0x1108)
	UUIDHandsFree    = ShortUUID(0x111E)
	UUIDAudioSource  = ShortUUID(0x110A)
	UUIDAVRCPTarget  = ShortUUID(0x110C)
	audioServiceUUID = map[string]struct{}{
		UUIDAudioSink: {},
		UUIDHeadset:   {},
		UUIDHandsFree: {},
	}
)

// ShortUUID expands a 16- or 32-bit SIG UUID onto the base UUID.
func ShortUUID(v uint32) string {
	u := baseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return u.String()
}

// CanonicalUUID normalizes a UUID string. Four or eight hex digits are treated
// as SIG short forms. Unparseable input is returned unchanged.
func CanonicalUUID(s string) string {
	if len(s) == 4 || len(s) == 8 {
		if v, err := strconv.ParseUint(s, 16, 32); err == nil {
			return ShortUUID(uint32(v))
		}
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return s
	}
	return u.String()
}

// HasAudioService reports whether any UUID is an audio sink or headset profile.
func HasAudioService(uuids []string) bool {
	for _, u := range uuids {
		if _, ok := audioServiceUUID[CanonicalUUID(u)]; ok {
			return true
		}
	}
	return false
}

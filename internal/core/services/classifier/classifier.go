// Package classifier assigns a DeviceType and icon to a normalized descriptor.
package classifier

import (
	"strings"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// KeywordTableVersion is bumped whenever a row is added, removed or reordered.
const KeywordTableVersion = 1

// KeywordRule maps any of its keywords to a device type.
type KeywordRule struct {
	Type     domain.DeviceType
	Keywords []string // lower-case
}

// keywordTable is evaluated top to bottom; the first row with a matching keyword wins.
// Order matters: "Bluetooth Speaker Headphone" must resolve to Headphone.
var keywordTable = []KeywordRule{
	{Type: domain.DeviceTypeHeadphone, Keywords: []string{"headphone"}},
	{Type: domain.DeviceTypeSpeaker, Keywords: []string{"speaker", "music"}},
	{Type: domain.DeviceTypeTV, Keywords: []string{"tv", "display"}},
	{Type: domain.DeviceTypePhone, Keywords: []string{"phone", "mobile"}},
	{Type: domain.DeviceTypeWearable, Keywords: []string{"watch", "wearable"}},
	{Type: domain.DeviceTypeKeyboard, Keywords: []string{"keyboard"}},
	{Type: domain.DeviceTypeMouse, Keywords: []string{"mouse"}},
	{Type: domain.DeviceTypeCarAudio, Keywords: []string{"car", "vehicle", "auto"}},
	{Type: domain.DeviceTypePrinter, Keywords: []string{"printer"}},
	{Type: domain.DeviceTypeTablet, Keywords: []string{"tablet", "ipad"}},
	{Type: domain.DeviceTypeCamera, Keywords: []string{"camera"}},
	{Type: domain.DeviceTypeGameController, Keywords: []string{"game", "controller"}},
	{Type: domain.DeviceTypeSmartDevice, Keywords: []string{"smart"}},
	{Type: domain.DeviceTypeFitnessTracker, Keywords: []string{"fitness", "tracker"}},
	{Type: domain.DeviceTypeDrone, Keywords: []string{"drone"}},
	{Type: domain.DeviceTypeHub, Keywords: []string{"hub", "gateway"}},
	{Type: domain.DeviceTypeSensor, Keywords: []string{"sensor", "detector"}},
	{Type: domain.DeviceTypeSmartLight, Keywords: []string{"light", "bulb"}},
}

// KeywordTable returns a copy of the active rule table.
func KeywordTable() []KeywordRule {
	out := make([]KeywordRule, len(keywordTable))
	for i, rule := range keywordTable {
		out[i] = KeywordRule{Type: rule.Type, Keywords: append([]string(nil), rule.Keywords...)}
	}
	return out
}

// Classify derives the device type and icon for desc.
//
// Keyword rules only apply to names the device advertised itself; a synthesized
// fallback name goes straight to the appearance lookup. When neither matches the
// result is Unknown with the generic Bluetooth icon.
func Classify(desc domain.DeviceDescriptor) domain.ClassifiedDevice {
	out := domain.ClassifiedDevice{
		DeviceDescriptor: desc,
		DeviceType:       domain.DeviceTypeUnknown,
		Icon:             domain.IconUnknown,
		MatchedBy:        domain.MatchNone,
	}

	if desc.NameSource.Resolved() {
		if t, ok := MatchKeyword(desc.DisplayName); ok {
			out.DeviceType, out.MatchedBy = t, domain.MatchKeyword
			out.Icon = t.Icon()
			return out
		}
	}

	if desc.Appearance != nil {
		if t, ok := TypeForAppearance(*desc.Appearance); ok {
			out.DeviceType, out.MatchedBy = t, domain.MatchAppearance
			out.Icon = t.Icon()
		}
	}
	return out
}

// ClassifyAll classifies a batch, preserving order.
func ClassifyAll(descs []domain.DeviceDescriptor) []domain.ClassifiedDevice {
	out := make([]domain.ClassifiedDevice, len(descs))
	for i, d := range descs {
		out[i] = Classify(d)
	}
	return out
}

// MatchKeyword runs the keyword table against name (case-insensitive substring).
func MatchKeyword(name string) (domain.DeviceType, bool) {
	lower := strings.ToLower(name)
	if lower == "" {
		return domain.DeviceTypeUnknown, false
	}
	for _, rule := range keywordTable {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Type, true
			}
		}
	}
	return domain.DeviceTypeUnknown, false
}

package manufacturer

// CommonCompanies is a small built-in table of frequently seen company identifiers.
// It answers lookups before the SIG database has been imported.
var CommonCompanies = map[uint16]string{
	0x0000: "Ericsson Technology Licensing",
	0x0001: "Nokia Mobile Phones",
	0x0002: "Intel Corp.",
	0x0003: "IBM Corp.",
	0x0004: "Toshiba Corp.",
	0x0006: "Microsoft",
	0x000A: "Qualcomm Technologies International, Ltd. (QTIL)",
	0x000D: "Texas Instruments Inc.",
	0x000F: "Broadcom Corporation",
	0x001D: "Qualcomm",
	0x0046: "MediaTek, Inc.",
	0x004C: "Apple, Inc.",
	0x0057: "Harman International Industries, Inc.",
	0x0059: "Nordic Semiconductor ASA",
	0x0065: "HP, Inc.",
	0x0067: "GN Audio A/S",
	0x0075: "Samsung Electronics Co. Ltd.",
	0x0087: "Garmin International, Inc.",
	0x009E: "Bose Corporation",
	0x00C4: "LG Electronics",
	0x00E0: "Google",
	0x012D: "Sony Corporation",
	0x0171: "Amazon.com Services LLC",
	0x027D: "HUAWEI Technologies Co., Ltd.",
	0x02E5: "Espressif Systems (Shanghai) Co., Ltd.",
	0x038F: "Xiaomi Inc.",
	0x05A7: "Sonos Inc",
}

// commonAppearanceEntries covers the appearance values a speaker integration cares about.
var commonAppearanceEntries = []AppearanceEntry{
	{Code: 0x0000, Category: "Unknown"},
	{Code: 0x0040, Category: "Phone"},
	{Code: 0x0080, Category: "Computer"},
	{Code: 0x00C0, Category: "Watch"},
	{Code: 0x0140, Category: "Display"},
	{Code: 0x0280, Category: "Media Player"},
	{Code: 0x0340, Category: "Heart Rate Sensor"},
	{Code: 0x03C0, Category: "Human Interface Device"},
	{Code: 0x03C1, Category: "Human Interface Device", Subcategory: "Keyboard"},
	{Code: 0x03C2, Category: "Human Interface Device", Subcategory: "Mouse"},
	{Code: 0x03C3, Category: "Human Interface Device", Subcategory: "Joystick"},
	{Code: 0x03C4, Category: "Human Interface Device", Subcategory: "Gamepad"},
	{Code: 0x03C5, Category: "Human Interface Device", Subcategory: "Digitizer Tablet"},
	{Code: 0x0840, Category: "Audio Sink"},
	{Code: 0x0841, Category: "Audio Sink", Subcategory: "Standalone Speaker"},
	{Code: 0x0842, Category: "Audio Sink", Subcategory: "Soundbar"},
	{Code: 0x0843, Category: "Audio Sink", Subcategory: "Bookshelf Speaker"},
	{Code: 0x0844, Category: "Audio Sink", Subcategory: "Standmounted Speaker"},
	{Code: 0x0845, Category: "Audio Sink", Subcategory: "Speakerphone"},
	{Code: 0x0940, Category: "Wearable Audio Device"},
	{Code: 0x0941, Category: "Wearable Audio Device", Subcategory: "Earbud"},
	{Code: 0x0942, Category: "Wearable Audio Device", Subcategory: "Headset"},
	{Code: 0x0943, Category: "Wearable Audio Device", Subcategory: "Headphones"},
	{Code: 0x0944, Category: "Wearable Audio Device", Subcategory: "Neck Band"},
}

// CommonAppearances maps appearance codes to display names.
var CommonAppearances = appearanceTable(commonAppearanceEntries)

func appearanceTable(entries []AppearanceEntry) map[uint16]string {
	out := make(map[uint16]string, len(entries))
	for _, e := range entries {
		out[e.Code] = e.Name()
	}
	return out
}

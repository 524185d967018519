package manufacturer

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default locations of the Bluetooth SIG assigned-numbers files.
const (
	CompanyIdentifiersURL = "https://bitbucket.org/bluetooth-SIG/public/raw/main/assigned_numbers/company_identifiers/company_identifiers.yaml"
	AppearanceValuesURL   = "https://bitbucket.org/bluetooth-SIG/public/raw/main/assigned_numbers/core/appearance_values.yaml"
)

type sigCompanyFile struct {
	CompanyIdentifiers []struct {
		Value uint16 `yaml:"value"`
		Name  string `yaml:"name"`
	} `yaml:"company_identifiers"`
}

type sigAppearanceFile struct {
	AppearanceValues []struct {
		Category    uint16 `yaml:"category"`
		Name        string `yaml:"name"`
		Subcategory []struct {
			Value uint16 `yaml:"value"`
			Name  string `yaml:"name"`
		} `yaml:"subcategory"`
	} `yaml:"appearance_values"`
}

// ParseCompanyIdentifiersYAML parses company_identifiers.yaml.
func ParseCompanyIdentifiersYAML(data []byte, updated time.Time) ([]CompanyEntry, error) {
	var file sigCompanyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse company identifiers: %w", err)
	}

	entries := make([]CompanyEntry, 0, len(file.CompanyIdentifiers))
	for _, c := range file.CompanyIdentifiers {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		entries = append(entries, CompanyEntry{ID: c.Value, Name: name, LastUpdated: updated})
	}
	return entries, nil
}

// ParseAppearanceValuesYAML parses appearance_values.yaml. Categories occupy the
// upper 10 bits of the code and sub-categories the lower 6.
func ParseAppearanceValuesYAML(data []byte) ([]AppearanceEntry, error) {
	var file sigAppearanceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse appearance values: %w", err)
	}

	var entries []AppearanceEntry
	for _, cat := range file.AppearanceValues {
		if cat.Category > 0x3FF {
			return nil, &ValidationError{Field: "category", Value: fmt.Sprintf("0x%X", cat.Category), Err: ErrInvalidAppearance}
		}
		base := cat.Category << 6
		entries = append(entries, AppearanceEntry{Code: base, Category: cat.Name})
		for _, sub := range cat.Subcategory {
			if sub.Value == 0 || sub.Value > 0x3F {
				continue
			}
			entries = append(entries, AppearanceEntry{Code: base | sub.Value, Category: cat.Name, Subcategory: sub.Name})
		}
	}
	return entries, nil
}

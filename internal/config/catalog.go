package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/oncallkb/internal/enrich"
)

// ErrEmptyCatalogEntry is returned when a catalog list holds a blank entry.
var ErrEmptyCatalogEntry = errors.New("empty catalog entry")

type catalogFile struct {
	BotSenders    *[]string `yaml:"bot_senders"`
	Services      *[]string `yaml:"services"`
	KeyTerms      *[]string `yaml:"key_terms"`
	AckExclusions *[]string `yaml:"ack_exclusions"`
}

// LoadCatalog reads a catalog YAML file. An empty path yields the built-in
// catalog; lists missing from the file keep their built-in values.
func LoadCatalog(path string) (enrich.Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return enrich.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return enrich.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML over the built-in defaults.
func ParseCatalog(data []byte) (enrich.Catalog, error) {
	var fc catalogFile
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return enrich.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	cat := enrich.DefaultCatalog()
	var err error
	if fc.BotSenders != nil {
		if cat.BotSenders, err = normalize("bot_senders", *fc.BotSenders, true); err != nil {
			return enrich.Catalog{}, err
		}
	}
	if fc.Services != nil {
		if cat.Services, err = normalize("services", *fc.Services, true); err != nil {
			return enrich.Catalog{}, err
		}
	}
	if fc.KeyTerms != nil {
		if cat.KeyTerms, err = normalize("key_terms", *fc.KeyTerms, false); err != nil {
			return enrich.Catalog{}, err
		}
	}
	if fc.AckExclusions != nil {
		if cat.AckExclusions, err = normalize("ack_exclusions", *fc.AckExclusions, true); err != nil {
			return enrich.Catalog{}, err
		}
	}
	return cat, nil
}

// MarshalCatalog renders a catalog in the file format LoadCatalog reads.
func MarshalCatalog(cat enrich.Catalog) ([]byte, error) {
	return yaml.Marshal(cat)
}

// normalize trims entries, rejects blanks and drops repeats. Key terms keep
// their case because it is shown in the report.
func normalize(field string, items []string, lower bool) ([]string, error) {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, ErrEmptyCatalogEntry)
		}
		if lower {
			it = strings.ToLower(it)
		}
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out, nil
}

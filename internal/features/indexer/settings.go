package indexer

import (
	"fmt"
	"os"

	"go-indexer/internal/config"

	"gopkg.in/yaml.v3"
)

// IndexSettings is one per-index override: a verbatim remote schema plus a
// tengo transformer script applied to every document before indexing.
// The pair is all-or-nothing; a partial pair fails validation.
type IndexSettings struct {
	Schema      map[string]any `yaml:"schema"`
	Transformer string         `yaml:"transformer"`
}

// Settings maps remote index ids to their overrides.
type Settings map[string]IndexSettings

// LoadSettings reads the override file named by INDEX_SETTINGS_PATH.
// No path configured means no overrides.
func LoadSettings(cfg *config.Config) (Settings, error) {
	if cfg.IndexSettingsPath == "" {
		return Settings{}, nil
	}

	data, err := os.ReadFile(cfg.IndexSettingsPath)
	if err != nil {
		return nil, fmt.Errorf("read index settings: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse index settings: %w", err)
	}
	if settings == nil {
		settings = Settings{}
	}
	return settings, nil
}

// Has reports whether a well-formed override pair exists for the index.
func (s Settings) Has(indexID string) bool {
	entry, ok := s[indexID]
	return ok && len(entry.Schema) > 0 && entry.Transformer != ""
}

// Partial reports whether exactly one half of the override pair is present.
func (s Settings) Partial(indexID string) bool {
	entry, ok := s[indexID]
	if !ok {
		return false
	}
	return (len(entry.Schema) > 0) != (entry.Transformer != "")
}

// SchemaFor returns the custom schema for the index, or nil.
func (s Settings) SchemaFor(indexID string) map[string]any {
	if entry, ok := s[indexID]; ok && len(entry.Schema) > 0 {
		return entry.Schema
	}
	return nil
}

// TransformerFor returns the transformer script source for the index, or "".
func (s Settings) TransformerFor(indexID string) string {
	if entry, ok := s[indexID]; ok {
		return entry.Transformer
	}
	return ""
}

// Package catalog loads artist catalog files into the identity store. The
// seeder binary runs it at deploy time; network generation refuses names
// the catalog never introduced.
package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one artist entry of a catalog file.
type Record struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	SortName       string `yaml:"sort_name" json:"sort_name"`
	Bio            string `yaml:"bio" json:"bio"`
	ImageURL       string `yaml:"image_url" json:"image_url"`
	Disambiguation string `yaml:"disambiguation" json:"disambiguation"`
}

// File is the top-level catalog document.
type File struct {
	Artists []Record `yaml:"artists" json:"artists"`
}

// ParseFile decodes one catalog document. JSON catalogs carry the same
// shape as YAML ones; the extension decides the decoder.
func ParseFile(data []byte, path string) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}
	return &f, nil
}

package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/fixtures"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a stage catalog:
//
//	version: hiring-2025
//	stages:
//	  - code: admin_selection
//	    name: Administration Selection
//	    order: 10
//	  - code: accepted
//	    terminal: true
//	    outcome: accepted
type catalogFile struct {
	Version string             `yaml:"version"`
	Stages  []stage.Definition `yaml:"stages"`
}

// LoadCatalog reads the stage catalog at path. An empty path returns the
// built-in stages.
func LoadCatalog(path string) (*stage.Catalog, error) {
	if path == "" {
		return fixtures.DefaultCatalog()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML stage catalog. Unknown keys are rejected.
func ParseCatalog(raw []byte) (*stage.Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", stage.ErrInvalidCatalog, err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("%w: version is required", stage.ErrInvalidCatalog)
	}
	return stage.NewCatalog(file.Version, file.Stages)
}

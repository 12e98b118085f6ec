// Package catalog is the read-only index of pathogens and conditions.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/abx-learn/backend/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the on-disk catalog layout, in YAML or JSON.
type File struct {
	Pathogens  []models.Entity `json:"pathogens" yaml:"pathogens" validate:"dive"`
	Conditions []models.Entity `json:"conditions" yaml:"conditions" validate:"dive"`
}

type Catalog struct {
	pathogens      []models.Entity
	conditions     []models.Entity
	conditionByID  map[string]models.Entity
	pathogenByName map[string]int
}

var validate = validator.New()

// Load reads the catalog at path, or the built-in seed when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(seedYAML, "yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Seed returns the built-in catalog.
func Seed() *Catalog {
	c, err := Parse(seedYAML, "yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, format string) (*Catalog, error) {
	var f File
	var err error
	if format == "json" {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(f)
}

// New indexes f. Every entity needs a name, every condition an id, and
// neither may repeat.
func New(f File) (*Catalog, error) {
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		pathogens:      f.Pathogens,
		conditions:     f.Conditions,
		conditionByID:  make(map[string]models.Entity, len(f.Conditions)),
		pathogenByName: make(map[string]int, len(f.Pathogens)),
	}
	for _, cond := range f.Conditions {
		if cond.ID == "" {
			return nil, fmt.Errorf("%w: condition %q has no id", ErrInvalidCatalog, cond.Name)
		}
		if _, dup := c.conditionByID[cond.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate condition id %q", ErrInvalidCatalog, cond.ID)
		}
		c.conditionByID[cond.ID] = cond
	}
	for i, p := range f.Pathogens {
		if _, dup := c.pathogenByName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate pathogen %q", ErrInvalidCatalog, p.Name)
		}
		c.pathogenByName[p.Name] = i
	}
	return c, nil
}

func (c *Catalog) Condition(id string) (models.Entity, bool) {
	cond, ok := c.conditionByID[id]
	return cond, ok
}

func (c *Catalog) Conditions() []models.Entity {
	return append([]models.Entity(nil), c.conditions...)
}

func (c *Catalog) Pathogens() []models.Entity {
	return append([]models.Entity(nil), c.pathogens...)
}

// Pathogen finds a pathogen by exact name, then case-insensitively by name
// or commonName.
func (c *Catalog) Pathogen(name string) (models.Entity, bool) {
	if i, ok := c.pathogenByName[name]; ok {
		return c.pathogens[i], true
	}
	for _, p := range c.pathogens {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
		if common, ok := p.Extra["commonName"].(string); ok && strings.EqualFold(common, name) {
			return p, true
		}
	}
	return models.Entity{}, false
}

// UnknownConditions lists condition ids referenced by pathogens that the
// catalog does not define.
func (c *Catalog) UnknownConditions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.pathogens {
		for _, id := range p.Conditions {
			if _, ok := c.conditionByID[id]; !ok && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

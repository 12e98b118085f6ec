package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSeedLoads(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(seed): %v", err)
	}
	if n := len(c.Pathogens()); n != 10 {
		t.Errorf("pathogens = %d, want 10", n)
	}
	if n := len(c.Conditions()); n != 12 {
		t.Errorf("conditions = %d, want 12", n)
	}
	if unknown := c.UnknownConditions(); len(unknown) != 0 {
		t.Errorf("seed references undefined conditions: %v", unknown)
	}

	cond, ok := c.Condition("bacterial_meningitis")
	if !ok || cond.Category != "Central Nervous System" {
		t.Errorf("Condition(bacterial_meningitis) = %+v, %v", cond, ok)
	}
}

func TestSeedKeepsExtraFields(t *testing.T) {
	p, ok := Seed().Pathogen("Staphylococcus aureus")
	if !ok {
		t.Fatal("Staphylococcus aureus missing")
	}
	if p.Extra["severity"] != "high" {
		t.Errorf("severity = %v, want high", p.Extra["severity"])
	}
	if p.GramStatus != "Positive" || p.Morphology != "cocci" || len(p.Conditions) != 3 {
		t.Errorf("pathogen = %+v", p)
	}
}

func TestPathogenLookup(t *testing.T) {
	c := Seed()
	for _, name := range []string{"Escherichia coli", "escherichia COLI", "E. coli", "e. coli"} {
		p, ok := c.Pathogen(name)
		if !ok || p.Name != "Escherichia coli" {
			t.Errorf("Pathogen(%q) = %q, %v", name, p.Name, ok)
		}
	}
	if _, ok := c.Pathogen("Candida auris"); ok {
		t.Error("found a pathogen that is not in the catalog")
	}
}

func TestParseJSON(t *testing.T) {
	doc := `{
		"conditions": [{"id": "c1", "name": "Cond", "category": "Respiratory"}],
		"pathogens": [{"id": 7, "name": "Bug", "gramStatus": "Negative", "conditions": ["c1"], "notes": "x"}]
	}`
	c, err := Parse([]byte(doc), "json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, ok := c.Pathogen("Bug")
	if !ok || p.ID != "7" || p.Extra["notes"] != "x" {
		t.Errorf("Pathogen(Bug) = %+v, %v", p, ok)
	}
}

func TestInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "pathogens: [unclosed"},
		{"missing name", "pathogens:\n  - id: x\n"},
		{"condition without id", "conditions:\n  - name: Cond\n"},
		{"duplicate condition", "conditions:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"},
		{"duplicate pathogen", "pathogens:\n  - {name: A}\n  - {name: A}\n"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.doc), "yaml")
		if !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("%s: err = %v, want ErrInvalidCatalog", tt.name, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "conditions:\n  - {id: c1, name: C, category: Respiratory}\npathogens:\n  - {name: P, conditions: [c1, c9]}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if unknown := c.UnknownConditions(); len(unknown) != 1 || unknown[0] != "c9" {
		t.Errorf("UnknownConditions = %v, want [c9]", unknown)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

// pkg/plancatalog/catalog.go
package plancatalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a validated catalog from plans.
func New(plans ...Plan) (*Catalog, error) {
	c := &Catalog{Version: "1", Plans: plans}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the catalog and rebuilds its lookup index.
func (c *Catalog) Validate() error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("catalog contains no plans")
	}

	index := make(map[string]int, len(c.Plans))
	defaults := map[string]int{}
	for i, p := range c.Plans {
		if p.ID == "" {
			return fmt.Errorf("plan %d missing required field: id", i)
		}
		if _, dup := index[p.ID]; dup {
			return fmt.Errorf("duplicate plan id: %s", p.ID)
		}
		index[p.ID] = i

		if p.Name == "" {
			return fmt.Errorf("plan %s missing required field: name", p.ID)
		}
		if p.Kind != KindEmployer && p.Kind != KindEmployee {
			return fmt.Errorf("plan %s has invalid kind %q", p.ID, p.Kind)
		}
		if p.JobsLimit < Unlimited || p.ContactViewsLimit < Unlimited {
			return fmt.Errorf("plan %s has a negative limit other than %d", p.ID, Unlimited)
		}
		if p.ValidityDays <= 0 {
			return fmt.Errorf("plan %s must have positive validity_days", p.ID)
		}
		if p.Default {
			defaults[p.Kind]++
		}
	}

	for _, kind := range []string{KindEmployer, KindEmployee} {
		if defaults[kind] != 1 {
			return fmt.Errorf("catalog must have exactly one default %s plan, found %d", kind, defaults[kind])
		}
	}

	c.index = index
	return nil
}

// Lookup returns the plan with the given id.
func (c *Catalog) Lookup(id string) (Plan, bool) {
	i, ok := c.index[id]
	if !ok {
		return Plan{}, false
	}
	return c.Plans[i], true
}

// Default returns the fallback plan for an account kind.
func (c *Catalog) Default(kind string) (Plan, bool) {
	for _, p := range c.Plans {
		if p.Kind == kind && p.Default {
			return p, true
		}
	}
	return Plan{}, false
}

// PlansFor lists the plans sold to an account kind in catalog order.
func (c *Catalog) PlansFor(kind string) []Plan {
	var out []Plan
	for _, p := range c.Plans {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Add appends a plan and revalidates. The catalog is unchanged on error.
func (c *Catalog) Add(p Plan) error {
	if _, exists := c.Lookup(p.ID); exists {
		return fmt.Errorf("plan with id %s already exists", p.ID)
	}
	prev := c.Plans
	c.Plans = append(append([]Plan{}, prev...), p)
	if err := c.Validate(); err != nil {
		c.Plans = prev
		_ = c.Validate()
		return err
	}
	return nil
}

// Save writes the catalog as YAML, creating the directory if needed.
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

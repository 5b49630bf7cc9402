// pkg/plancatalog/schema.go
package plancatalog

// Unlimited is the catalog's marker for a limit with no ceiling.
const Unlimited = -1

const (
	KindEmployer = "employer"
	KindEmployee = "employee"
)

type Catalog struct {
	Version     string `yaml:"version"`
	LastUpdated string `yaml:"last_updated"`
	Plans       []Plan `yaml:"plans"`

	index map[string]int
}

// Plan is a purchasable tier. Limits apply per subscription period; -1 means unlimited.
type Plan struct {
	ID                    string `yaml:"id"`
	Name                  string `yaml:"name"`
	Kind                  string `yaml:"kind"`
	JobsLimit             int    `yaml:"jobs_limit"`
	ContactViewsLimit     int    `yaml:"contact_views_limit"`
	ValidityDays          int    `yaml:"validity_days"`
	AllowsFreeContactView bool   `yaml:"allows_free_contact_view,omitempty"`
	Default               bool   `yaml:"default,omitempty"`
}

package plancatalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPlans() []Plan {
	return []Plan{
		{ID: "employer-free", Name: "Free", Kind: KindEmployer, JobsLimit: 1, ContactViewsLimit: 3, ValidityDays: 3650, Default: true},
		{ID: "employer-pro", Name: "Pro", Kind: KindEmployer, JobsLimit: Unlimited, ContactViewsLimit: 50, ValidityDays: 30},
		{ID: "employee-basic", Name: "Basic", Kind: KindEmployee, ValidityDays: 3650, Default: true},
		{ID: "employee-visible", Name: "Visible", Kind: KindEmployee, ValidityDays: 90, AllowsFreeContactView: true},
	}
}

func TestNew_Lookup(t *testing.T) {
	c, err := New(createTestPlans()...)
	require.NoError(t, err)

	p, ok := c.Lookup("employer-pro")
	require.True(t, ok)
	assert.Equal(t, Unlimited, p.JobsLimit)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	def, ok := c.Default(KindEmployee)
	require.True(t, ok)
	assert.Equal(t, "employee-basic", def.ID)

	assert.Len(t, c.PlansFor(KindEmployer), 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]Plan) []Plan
		wantErr string
	}{
		{name: "empty", mutate: func([]Plan) []Plan { return nil }, wantErr: "no plans"},
		{name: "missing id", mutate: func(p []Plan) []Plan { p[1].ID = ""; return p }, wantErr: "id"},
		{name: "duplicate id", mutate: func(p []Plan) []Plan { p[1].ID = "employer-free"; return p }, wantErr: "duplicate"},
		{name: "missing name", mutate: func(p []Plan) []Plan { p[1].Name = ""; return p }, wantErr: "name"},
		{name: "bad kind", mutate: func(p []Plan) []Plan { p[1].Kind = "admin"; return p }, wantErr: "invalid kind"},
		{name: "negative limit", mutate: func(p []Plan) []Plan { p[1].ContactViewsLimit = -2; return p }, wantErr: "negative limit"},
		{name: "zero validity", mutate: func(p []Plan) []Plan { p[1].ValidityDays = 0; return p }, wantErr: "validity_days"},
		{name: "two defaults", mutate: func(p []Plan) []Plan { p[1].Default = true; return p }, wantErr: "exactly one default employer"},
		{name: "no employee default", mutate: func(p []Plan) []Plan { p[2].Default = false; return p }, wantErr: "exactly one default employee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.mutate(createTestPlans())...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
plans:
  - id: employer-free
    name: Free
    kind: employer
    validity_days: 30
    default: true
    colour: blue
`))
	assert.Error(t, err)
}

func TestAdd(t *testing.T) {
	c, err := New(createTestPlans()...)
	require.NoError(t, err)

	require.NoError(t, c.Add(Plan{ID: "employer-growth", Name: "Growth", Kind: KindEmployer, JobsLimit: 20, ContactViewsLimit: 150, ValidityDays: 30}))
	_, ok := c.Lookup("employer-growth")
	assert.True(t, ok)

	err = c.Add(Plan{ID: "employer-bad", Name: "Bad", Kind: KindEmployer, ValidityDays: 30, Default: true})
	assert.Error(t, err)
	_, ok = c.Lookup("employer-bad")
	assert.False(t, ok)
	assert.Len(t, c.Plans, 5)
}

func TestSaveLoad(t *testing.T) {
	c, err := New(createTestPlans()...)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "plans.yaml")

	require.NoError(t, c.Save(path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, c.Plans, loaded.Plans)
}

func TestLoad_ShippedCatalog(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "plans.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("shipped catalog not found")
	}

	c, err := Load(path)

	require.NoError(t, err)
	_, ok := c.Default(KindEmployer)
	assert.True(t, ok)
}

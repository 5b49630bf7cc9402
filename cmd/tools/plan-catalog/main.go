// cmd/tools/plan-catalog/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"hiring-entitlements/pkg/plancatalog"
)

const defaultCatalogPath = "configs/plans.yaml"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return fmt.Errorf("missing command")
	}

	addCmd := flag.NewFlagSet("add", flag.ContinueOnError)
	updateCmd := flag.NewFlagSet("update", flag.ContinueOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)

	var path string
	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, listCmd} {
		fs.SetOutput(out)
		fs.StringVar(&path, "path", defaultCatalogPath, "Path to plan catalog file")
	}

	// Add command flags
	id := addCmd.String("id", "", "Plan ID (e.g., employer-growth)")
	name := addCmd.String("name", "", "Display name (e.g., Growth)")
	kind := addCmd.String("kind", "", "Account kind: employer or employee")
	jobs := addCmd.Int("jobs", 0, "Job posting limit per period, -1 for unlimited")
	views := addCmd.Int("views", 0, "Contact view limit per period, -1 for unlimited")
	validity := addCmd.Int("validityDays", 30, "Subscription period in days")
	freeView := addCmd.Bool("freeContactView", false, "Employee plans only: employers view this employee's contact for free")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Plan ID to update")
	field := updateCmd.String("field", "", "Field to update (name, jobs, views, validityDays, freeContactView)")
	value := updateCmd.String("value", "", "New value for the field")

	// List command flags
	listKind := listCmd.String("kind", "", "Only list plans of this account kind")

	switch args[0] {
	case "add":
		if err := addCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" || *name == "" || *kind == "" {
			addCmd.Usage()
			return fmt.Errorf("id, name and kind are required for add")
		}
		err := addPlan(path, plancatalog.Plan{
			ID:                    *id,
			Name:                  *name,
			Kind:                  *kind,
			JobsLimit:             *jobs,
			ContactViewsLimit:     *views,
			ValidityDays:          *validity,
			AllowsFreeContactView: *freeView,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added plan: %s\n", *id)

	case "update":
		if err := updateCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *idUpdate == "" || *field == "" || *value == "" {
			updateCmd.Usage()
			return fmt.Errorf("id, field and value are required for update")
		}
		if err := updatePlan(path, *idUpdate, *field, *value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated plan %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		if err := validateCmd.Parse(args[1:]); err != nil {
			return err
		}
		c, err := plancatalog.Load(path)
		if err != nil {
			return fmt.Errorf("catalog validation failed: %w", err)
		}
		fmt.Fprintf(out, "Catalog validation passed (%d plans).\n", len(c.Plans))

	case "list":
		if err := listCmd.Parse(args[1:]); err != nil {
			return err
		}
		return listPlans(path, *listKind, out)

	case "help":
		help(out)

	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func addPlan(path string, p plancatalog.Plan) error {
	c, err := plancatalog.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := c.Add(p); err != nil {
		return err
	}
	c.LastUpdated = time.Now().Format(time.RFC3339)
	return c.Save(path)
}

func updatePlan(path, id, field, value string) error {
	c, err := plancatalog.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	i := -1
	for j := range c.Plans {
		if c.Plans[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("plan with id %s not found", id)
	}

	p := &c.Plans[i]
	switch field {
	case "name":
		p.Name = value
	case "jobs", "views", "validityDays":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", field, err)
		}
		switch field {
		case "jobs":
			p.JobsLimit = n
		case "views":
			p.ContactViewsLimit = n
		default:
			p.ValidityDays = n
		}
	case "freeContactView":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid freeContactView value: %w", err)
		}
		p.AllowsFreeContactView = b
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := c.Validate(); err != nil {
		return err
	}
	c.LastUpdated = time.Now().Format(time.RFC3339)
	return c.Save(path)
}

func listPlans(path, kind string, out io.Writer) error {
	c, err := plancatalog.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	plans := c.Plans
	if kind != "" {
		plans = c.PlansFor(kind)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tJOBS\tVIEWS\tDAYS\tFREE VIEW\tDEFAULT")
	for _, p := range plans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\t%t\n",
			p.ID, p.Kind, limit(p.JobsLimit), limit(p.ContactViewsLimit), p.ValidityDays, p.AllowsFreeContactView, p.Default)
	}
	return w.Flush()
}

func limit(n int) string {
	if n == plancatalog.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func help(out io.Writer) {
	fmt.Fprintln(out, "Usage: plan-catalog <command> [options]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  add       Add a plan to the catalog")
	fmt.Fprintln(out, "  update    Update one field of a plan")
	fmt.Fprintln(out, "  validate  Validate the catalog")
	fmt.Fprintln(out, "  list      List plans")
	fmt.Fprintln(out, "  help      Show this help message")
}

// Package cli implements the single-shot admin commands. Each invocation
// runs one command against the configured backend and prints its result as
// JSON to stdout.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/incomiq/incomiq/internal/app"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// CLI dispatches admin commands against a composed App.
type CLI struct {
	app *app.App
	out io.Writer
}

// New constructs a CLI writing to out.
func New(a *app.App, out io.Writer) *CLI {
	return &CLI{app: a, out: out}
}

// Usage describes the available commands.
const Usage = `usage: incomiq-admin <command> [options]

commands:
  bootstrap            create the admin account if missing
  dashboard            print the cross-account dashboard report
  low-income           print detailed low-income alerts
  rules                print savings rule analytics
  compliance [-min N]  print large transactions at or above N (default 50000)
  users                print the anonymized account overview
  backup               upload a snapshot of the data directory
`

// Run executes one command. args does not include the program name.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, Usage)
		return fmt.Errorf("no command given")
	}

	switch cmd := args[0]; cmd {
	case "bootstrap":
		return c.bootstrap(ctx)
	case "dashboard":
		report, err := c.app.Admin.Dashboard(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(report)
	case "low-income":
		report, err := c.app.Admin.LowIncomeAlerts(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(report)
	case "rules":
		report, err := c.app.Admin.RuleAnalytics(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(report)
	case "compliance":
		fs := flag.NewFlagSet("compliance", flag.ContinueOnError)
		minAmount := fs.Float64("min", 0, "minimum flagged amount")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		report, err := c.app.Admin.ComplianceTransactions(ctx, *minAmount)
		if err != nil {
			return err
		}
		return c.printJSON(report)
	case "users":
		report, err := c.app.Admin.UsersOverview(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(report)
	case "backup":
		prefix, n, err := c.app.Backup.Snapshot(ctx, c.app.Config.DataDir)
		if err != nil {
			return err
		}
		return c.printJSON(map[string]any{"prefix": prefix, "files": n})
	default:
		fmt.Fprint(c.out, Usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// bootstrap ensures the configured admin account exists, prompting for a
// password when none is configured.
func (c *CLI) bootstrap(ctx context.Context) error {
	cfg := c.app.Config

	password := cfg.AdminPassword
	if password == "" {
		fmt.Fprintf(c.out, "Password for %s: ", cfg.AdminEmail)
		raw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return fmt.Errorf("password read error: %w", err)
		}
		password = string(raw)
	}

	account, err := c.app.Credentials.EnsureAdmin(ctx, cfg.AdminEmail, password, cfg.AdminName)
	if err != nil {
		return err
	}
	return c.printJSON(map[string]any{"email": account.Email, "id": account.ID})
}

func (c *CLI) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

// Package main implements the relink maintenance command, which repoints
// foreign keys by title according to a YAML rules file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/logging"
	"github.com/routinekit/routinekit/internal/maintenance"
)

var (
	configPath string
	rulesPath  string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "relink",
	Short: "Repoint routine links by title",
	Long: `Reads relink rules from a YAML file, resolves every rule against the
database and updates the matching rows in one transaction.

Example rules file:

  rules:
    - table: routines
      column: goal_id
      title: Morning stretch
      targetTable: goals
      targetTitle: Stay flexible`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRelink,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.Flags().StringVarP(&rulesPath, "rules", "r", "relink.yaml", "path to rules file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without writing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRelink(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	logger := logging.Setup(cfg.Log)

	rules, err := maintenance.LoadRules(rulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rules from %s: %w", rulesPath, err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ctx := cmd.Context()
	relinker := maintenance.NewRelinker(db)

	changes, err := relinker.Plan(ctx, rules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pending := 0
	for _, c := range changes {
		status := "update"
		if c.Noop() {
			status = "skip"
		} else {
			pending++
		}
		old := "<null>"
		if c.OldValue.Valid {
			old = c.OldValue.String
		}
		fmt.Fprintf(out, "%-6s %s %s: %s -> %s\n", status, c.Rule.Table, c.RowID, old, c.NewValue)
	}
	fmt.Fprintf(out, "%d change(s) planned, %d already in place\n", pending, len(changes)-pending)

	if dryRun || pending == 0 {
		return nil
	}

	updated, err := relinker.Apply(ctx, changes)
	if err != nil {
		return err
	}
	logger.Info("relink applied", "rules", len(rules), "updated", updated)
	fmt.Fprintf(out, "%d row(s) updated\n", updated)
	return nil
}

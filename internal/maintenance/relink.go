// Package maintenance holds one-off data repair operations run from the
// command line.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/routinekit/routinekit/internal/database"
)

var (
	// ErrUnsupportedLink indicates a rule names a table/column pair that cannot be relinked.
	ErrUnsupportedLink = errors.New("unsupported link")
	// ErrNoMatch indicates no row carries the title a rule refers to.
	ErrNoMatch = errors.New("no row matches title")
	// ErrAmbiguousTarget indicates more than one target row carries the rule's target title.
	ErrAmbiguousTarget = errors.New("target title is ambiguous")
)

// links lists the columns that may be relinked and the table they point to.
// Table and column names end up in SQL text, so only these are accepted.
var links = map[string]map[string]string{
	"routines": {"goal_id": "goals"},
}

// Rule sets column on every row of table titled Title to the id of the row
// of TargetTable titled TargetTitle.
type Rule struct {
	Table       string `yaml:"table"`
	Column      string `yaml:"column"`
	Title       string `yaml:"title"`
	TargetTable string `yaml:"targetTable"`
	TargetTitle string `yaml:"targetTitle"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s.%s where title=%q -> %s titled %q", r.Table, r.Column, r.Title, r.TargetTable, r.TargetTitle)
}

// RuleSet is the YAML document read by LoadRules.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Change is one planned row update.
type Change struct {
	Rule     Rule
	RowID    string
	OldValue sql.NullString
	NewValue string
}

// Noop reports whether the row already holds the new value.
func (c Change) Noop() bool {
	return c.OldValue.Valid && c.OldValue.String == c.NewValue
}

// LoadRules reads and validates a rules file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(set.Rules) == 0 {
		return nil, errors.New("rules file contains no rules")
	}
	for i, r := range set.Rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return set.Rules, nil
}

func (r Rule) validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.TargetTitle) == "" {
		return errors.New("title and targetTitle are required")
	}
	cols, ok := links[r.Table]
	if !ok {
		return fmt.Errorf("%w: table %q", ErrUnsupportedLink, r.Table)
	}
	target, ok := cols[r.Column]
	if !ok {
		return fmt.Errorf("%w: column %s.%s", ErrUnsupportedLink, r.Table, r.Column)
	}
	if r.TargetTable != target {
		return fmt.Errorf("%w: %s.%s points to %s, not %s", ErrUnsupportedLink, r.Table, r.Column, target, r.TargetTable)
	}
	return nil
}

// Relinker plans and applies relink rules against a database.
type Relinker struct {
	db *database.DB
}

// NewRelinker creates a Relinker on db.
func NewRelinker(db *database.DB) *Relinker {
	return &Relinker{db: db}
}

// Plan resolves every rule into row changes without writing anything.
// A rule whose source or target title does not resolve fails the whole plan.
func (r *Relinker) Plan(ctx context.Context, rules []Rule) ([]Change, error) {
	var changes []Change
	for _, rule := range rules {
		if err := rule.validate(); err != nil {
			return nil, err
		}

		targetID, err := r.resolveTarget(ctx, rule)
		if err != nil {
			return nil, err
		}

		rows, err := r.db.QueryContext(ctx,
			fmt.Sprintf("SELECT id, %s FROM %s WHERE title = ? ORDER BY id", rule.Column, rule.Table),
			rule.Title,
		)
		if err != nil {
			return nil, err
		}

		var found []Change
		for rows.Next() {
			c := Change{Rule: rule, NewValue: targetID}
			if err := rows.Scan(&c.RowID, &c.OldValue); err != nil {
				_ = rows.Close()
				return nil, err
			}
			found = append(found, c)
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(found) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, rule)
		}
		changes = append(changes, found...)
	}
	return changes, nil
}

func (r *Relinker) resolveTarget(ctx context.Context, rule Rule) (string, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE title = ? LIMIT 2", rule.TargetTable),
		rule.TargetTitle,
	)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s titled %q", ErrNoMatch, rule.TargetTable, rule.TargetTitle)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s titled %q", ErrAmbiguousTarget, rule.TargetTable, rule.TargetTitle)
	}
}

// Apply writes changes in a single transaction and returns the number of
// rows updated. Changes that are already in place are skipped.
func (r *Relinker) Apply(ctx context.Context, changes []Change) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	updated := 0
	for _, c := range changes {
		if c.Noop() {
			continue
		}
		query := r.db.Rebind(fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE id = ?", c.Rule.Table, c.Rule.Column))
		if _, err := tx.ExecContext(ctx, query, c.NewValue, now, c.RowID); err != nil {
			return 0, fmt.Errorf("failed to update %s %s: %w", c.Rule.Table, c.RowID, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TableCheck lists the columns the engine reads from one table.
type TableCheck struct {
	Table   string
	Columns []string
}

// DefaultTableChecks covers the tables created by the engine migrations.
var DefaultTableChecks = []TableCheck{
	{
		Table: "review_permission_profiles",
		Columns: []string{
			"id", "role_name", "review_type", "can_assign_reviewer", "can_self_review",
			"auto_assignment", "weight", "max_concurrent_reviews", "priority_level", "active",
		},
	},
	{
		Table: "review_assignments",
		Columns: []string{
			"id", "review_task_id", "reviewer_id", "assigner_id", "status", "assigned_at",
			"accepted_at", "rejected_at", "auto_assigned", "weight_score", "expected_completion_at",
		},
	},
	{
		Table:   "review_assignment_events",
		Columns: []string{"id", "assignment_id", "from_status", "to_status", "occurred_at"},
	},
	{
		Table:   "review_assignment_backlog",
		Columns: []string{"id", "review_task_id", "review_type", "attempts", "queued_at"},
	},
}

// SchemaOption customizes schema validation.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	checks []TableCheck
}

// WithTableChecks replaces the default checks.
func WithTableChecks(checks []TableCheck) SchemaOption {
	return func(cfg *schemaConfig) {
		cfg.checks = checks
	}
}

// SchemaValidationError summarizes missing tables and columns.
type SchemaValidationError struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

func (e *SchemaValidationError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if len(e.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(e.MissingTables, ", "))
	}
	if len(e.MissingColumns) > 0 {
		tables := make([]string, 0, len(e.MissingColumns))
		for table := range e.MissingColumns {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		cols := make([]string, 0, len(tables))
		for _, table := range tables {
			missing := append([]string(nil), e.MissingColumns[table]...)
			sort.Strings(missing)
			cols = append(cols, fmt.Sprintf("%s(%s)", table, strings.Join(missing, ", ")))
		}
		parts = append(parts, "missing columns: "+strings.Join(cols, "; "))
	}
	if len(parts) == 0 {
		return "review schema validation failed"
	}
	return "review schema validation failed: " + strings.Join(parts, "; ")
}

// ValidateSchema checks that a database already carries the review engine
// tables, for hosts that run migrations out of band.
func ValidateSchema(ctx context.Context, db *sql.DB, dialect string, opts ...SchemaOption) error {
	if db == nil {
		return errors.New("migrations: db required")
	}
	normalized, err := normalizeDialect(dialect)
	if err != nil {
		return err
	}
	cfg := schemaConfig{checks: DefaultTableChecks}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var missingTables []string
	missingColumns := make(map[string][]string)
	for _, check := range cfg.checks {
		table := strings.TrimSpace(check.Table)
		if table == "" {
			continue
		}
		cols, err := fetchColumns(ctx, db, normalized, table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			missingTables = append(missingTables, table)
			continue
		}
		for _, col := range check.Columns {
			col = strings.ToLower(strings.TrimSpace(col))
			if col != "" && !cols[col] {
				missingColumns[table] = append(missingColumns[table], col)
			}
		}
	}
	if len(missingTables) == 0 && len(missingColumns) == 0 {
		return nil
	}
	sort.Strings(missingTables)
	return &SchemaValidationError{MissingTables: missingTables, MissingColumns: missingColumns}
}

func normalizeDialect(dialect string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql", "pg":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
}

func fetchColumns(ctx context.Context, db *sql.DB, dialect, table string) (map[string]bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if dialect == "postgres" {
		rows, err = db.QueryContext(ctx, `
			SELECT column_name
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
		`, table)
	} else {
		rows, err = db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

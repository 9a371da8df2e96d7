package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"ems/internal/domain/auth"
	"ems/internal/platform/config"
	"ems/internal/platform/querier"
)

type catalogEntry struct {
	Name        string
	Description string
}

var defaultDepartments = []catalogEntry{
	{"Human Resources", "People operations and recruitment"},
	{"Finance", "Accounting, payroll and budgeting"},
	{"Information Technology", "Systems, infrastructure and support"},
	{"Operations", "Day to day business operations"},
	{"Sales and Marketing", "Revenue and brand"},
}

var defaultPositions = []catalogEntry{
	{"HR Officer", "Handles employee records and requests"},
	{"Accountant", "Maintains financial records"},
	{"Software Developer", "Builds and maintains internal systems"},
	{"Operations Supervisor", "Coordinates operational staff"},
	{"Sales Associate", "Handles customer accounts"},
}

// Seed makes sure roles exist, creates the bootstrap HR account and fills an
// empty department and position catalog. It is safe to run on every start.
func Seed(ctx context.Context, q querier.Querier, cfg config.Config) error {
	roleIDs, err := ensureRoles(ctx, q)
	if err != nil {
		return err
	}
	if err := ensureAdminUser(ctx, q, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	if !cfg.SeedCatalog {
		return nil
	}
	if err := ensureCatalog(ctx, q, "departments", "name", defaultDepartments); err != nil {
		return err
	}
	return ensureCatalog(ctx, q, "positions", "title", defaultPositions)
}

func ensureRoles(ctx context.Context, q querier.Querier) (map[string]string, error) {
	names := make([]string, 0, len(auth.RolePermissions))
	for name := range auth.RolePermissions {
		names = append(names, name)
	}
	sort.Strings(names)

	roleIDs := map[string]string{}
	for _, name := range names {
		var id string
		err := q.QueryRow(ctx, `
    INSERT INTO roles (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", name, err)
		}
		roleIDs[name] = id
	}
	return roleIDs, nil
}

func ensureAdminUser(ctx context.Context, q querier.Querier, roleID, email, password string) error {
	email = auth.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := q.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if issues := auth.PasswordIssues(password); len(issues) > 0 {
		slog.Warn("seed admin password does not meet the password policy", "issues", issues)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `
    INSERT INTO users (email, password_hash, role_id) VALUES ($1, $2, $3)
  `, email, hash, roleID); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	slog.Info("seeded admin user", "email", email)
	return nil
}

// ensureCatalog inserts defaults only when the table is empty so HR edits survive restarts.
func ensureCatalog(ctx context.Context, q querier.Querier, table, column string, entries []catalogEntry) error {
	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(1) FROM "+table).Scan(&total); err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	for _, entry := range entries {
		if _, err := q.Exec(ctx,
			"INSERT INTO "+table+" ("+column+", description) VALUES ($1, $2)",
			entry.Name, entry.Description,
		); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	slog.Info("seeded catalog", "table", table, "rows", len(entries))
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/looplj/caseflow/internal/log"
)

// The statements below use only column types and constraints shared by
// PostgreSQL, MySQL and SQLite. Timestamps are unix milliseconds.
var tables = []struct {
	name string
	ddl  string
}{
	{"organizations", `CREATE TABLE IF NOT EXISTS organizations (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	subdomain VARCHAR(128) NOT NULL UNIQUE,
	plan VARCHAR(64) NOT NULL,
	created_at BIGINT NOT NULL
)`},
	{"members", `CREATE TABLE IF NOT EXISTS members (
	organization_id VARCHAR(64) NOT NULL,
	user_id VARCHAR(64) NOT NULL,
	role VARCHAR(64) NOT NULL,
	created_at BIGINT NOT NULL,
	PRIMARY KEY (organization_id, user_id)
)`},
	{"permissions", `CREATE TABLE IF NOT EXISTS permissions (
	role VARCHAR(64) NOT NULL,
	feature_key VARCHAR(128) NOT NULL,
	allowed BOOLEAN NOT NULL,
	PRIMARY KEY (role, feature_key)
)`},
	{"case_statuses", `CREATE TABLE IF NOT EXISTS case_statuses (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	organization_id VARCHAR(64) NULL,
	name VARCHAR(255) NOT NULL,
	is_read_only BOOLEAN NOT NULL,
	sort_order BIGINT NOT NULL
)`},
	{"case_status_workflows", `CREATE TABLE IF NOT EXISTS case_status_workflows (
	status_id VARCHAR(64) NOT NULL,
	workflow VARCHAR(64) NOT NULL,
	PRIMARY KEY (status_id, workflow)
)`},
	{"cases", `CREATE TABLE IF NOT EXISTS cases (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	organization_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	workflow VARCHAR(64) NOT NULL,
	status_id VARCHAR(64) NULL,
	created_by VARCHAR(64) NOT NULL,
	created_at BIGINT NOT NULL
)`},
	{"case_updates", `CREATE TABLE IF NOT EXISTS case_updates (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL,
	author_id VARCHAR(64) NOT NULL,
	body TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`},
	{"case_activities", `CREATE TABLE IF NOT EXISTS case_activities (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	assigned_to VARCHAR(64) NULL
)`},
	{"vendors", `CREATE TABLE IF NOT EXISTS vendors (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	organization_id VARCHAR(64) NOT NULL,
	name VARCHAR(255) NOT NULL
)`},
	{"vendor_contacts", `CREATE TABLE IF NOT EXISTS vendor_contacts (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	vendor_id VARCHAR(64) NOT NULL,
	user_id VARCHAR(64) NOT NULL,
	UNIQUE (vendor_id, user_id)
)`},
	{"case_vendors", `CREATE TABLE IF NOT EXISTS case_vendors (
	case_id VARCHAR(64) NOT NULL,
	vendor_id VARCHAR(64) NOT NULL,
	PRIMARY KEY (case_id, vendor_id)
)`},
	{"case_status_history", `CREATE TABLE IF NOT EXISTS case_status_history (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	case_id VARCHAR(64) NOT NULL,
	from_status_id VARCHAR(64) NULL,
	to_status_id VARCHAR(64) NOT NULL,
	actor_id VARCHAR(64) NOT NULL,
	seq BIGINT NOT NULL,
	created_at BIGINT NOT NULL,
	UNIQUE (case_id, seq)
)`},
	{"audit_logs", `CREATE TABLE IF NOT EXISTS audit_logs (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	organization_id VARCHAR(64) NOT NULL,
	actor_id VARCHAR(64) NOT NULL,
	action VARCHAR(64) NOT NULL,
	entity VARCHAR(64) NOT NULL,
	entity_id VARCHAR(64) NOT NULL,
	detail TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`},
}

// Tables lists the managed table names in creation order.
func Tables() []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.name)
	}

	return names
}

// Migrate creates missing tables. Existing tables are left untouched.
func (c *Client) Migrate(ctx context.Context) error {
	return c.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, t := range tables {
			if _, err := c.Exec(ctx, t.ddl, []any{}); err != nil {
				return fmt.Errorf("create table %s: %w", t.name, err)
			}
		}

		log.Info(ctx, "db: schema migrated", log.String("dialect", c.dialect), log.Int("tables", len(tables)))

		return nil
	})
}

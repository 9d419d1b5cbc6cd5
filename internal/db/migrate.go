package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillRequestTypes(db); err != nil {
		return fmt.Errorf("backfilling transfer request types: %w", err)
	}
	if err := migrateBackfillInventoryVersions(db); err != nil {
		return fmt.Errorf("backfilling inventory versions: %w", err)
	}
	return nil
}

// migrateBackfillRequestTypes gives requests stored before request_type
// existed the default type. Idempotent.
func migrateBackfillRequestTypes(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(),
		`UPDATE transfer_requests SET request_type = 'standard' WHERE request_type = ''`)
	return err
}

// migrateBackfillInventoryVersions starts every pre-existing inventory row at
// version 1 so the first guarded write has a non-zero expectation.
func migrateBackfillInventoryVersions(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(),
		`UPDATE resource_inventory SET version = 1 WHERE version = 0`)
	return err
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id         TEXT NOT NULL,
		kind       TEXT NOT NULL CHECK(kind IN ('material','worker','vehicle','team')),
		name       TEXT NOT NULL,
		unit       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS construction_plans (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		reviewers  TEXT NOT NULL DEFAULT '{}',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_project ON construction_plans(project_id)`,
	`CREATE TABLE IF NOT EXISTS plan_items (
		id           TEXT PRIMARY KEY,
		plan_id      TEXT NOT NULL REFERENCES construction_plans(id) ON DELETE CASCADE,
		work_code    TEXT NOT NULL,
		idx          TEXT NOT NULL,
		parent_index TEXT,
		name         TEXT NOT NULL,
		unit         TEXT NOT NULL DEFAULT '',
		quantity     TEXT NOT NULL DEFAULT '0',
		unit_price   TEXT NOT NULL DEFAULT '0',
		total_price  TEXT NOT NULL DEFAULT '0',
		start_date   TEXT,
		end_date     TEXT,
		relations    TEXT NOT NULL DEFAULT '{}',
		deleted      INTEGER NOT NULL DEFAULT 0,
		deleted_at   TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON plan_items(plan_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_plan_items_live_index ON plan_items(plan_id, idx) WHERE deleted = 0`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_plan_items_live_work_code ON plan_items(work_code) WHERE deleted = 0`,
	`CREATE TABLE IF NOT EXISTS detail_lines (
		id            TEXT PRIMARY KEY,
		plan_item_id  TEXT NOT NULL REFERENCES plan_items(id) ON DELETE CASCADE,
		work_code     TEXT NOT NULL,
		resource_type TEXT NOT NULL CHECK(resource_type IN ('material','worker','vehicle','team')),
		resource_id   TEXT NOT NULL,
		quantity      TEXT NOT NULL,
		unit_price    TEXT NOT NULL DEFAULT '0',
		total         TEXT NOT NULL DEFAULT '0',
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_detail_lines_item ON detail_lines(plan_item_id)`,
	`CREATE TABLE IF NOT EXISTS construction_progress (
		id         TEXT PRIMARY KEY,
		plan_id    TEXT NOT NULL REFERENCES construction_plans(id) ON DELETE CASCADE,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (plan_id, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS progress_items (
		id               TEXT PRIMARY KEY,
		progress_id      TEXT NOT NULL REFERENCES construction_progress(id) ON DELETE CASCADE,
		work_code        TEXT NOT NULL,
		idx              TEXT NOT NULL,
		parent_index     TEXT,
		name             TEXT NOT NULL,
		unit             TEXT NOT NULL DEFAULT '',
		quantity         TEXT NOT NULL DEFAULT '0',
		unit_price       TEXT NOT NULL DEFAULT '0',
		total_price      TEXT NOT NULL DEFAULT '0',
		progress_percent TEXT NOT NULL DEFAULT '0',
		status           TEXT NOT NULL DEFAULT 'not_started'
		                 CHECK(status IN ('not_started','in_progress','paused','completed')),
		plan_start       TEXT,
		plan_end         TEXT,
		actual_start     TEXT,
		actual_end       TEXT,
		used_quantity    TEXT NOT NULL DEFAULT '0',
		deleted          INTEGER NOT NULL DEFAULT 0,
		deleted_at       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_items_progress ON progress_items(progress_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_progress_items_live_work_code ON progress_items(progress_id, work_code) WHERE deleted = 0`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_progress_items_live_index ON progress_items(progress_id, idx) WHERE deleted = 0`,
	`CREATE TABLE IF NOT EXISTS progress_item_details (
		id               TEXT PRIMARY KEY,
		progress_item_id TEXT NOT NULL REFERENCES progress_items(id) ON DELETE CASCADE,
		source_detail_id TEXT NOT NULL,
		resource_type    TEXT NOT NULL CHECK(resource_type IN ('material','worker','vehicle','team')),
		resource_id      TEXT NOT NULL,
		quantity         TEXT NOT NULL,
		unit_price       TEXT NOT NULL DEFAULT '0',
		total            TEXT NOT NULL DEFAULT '0',
		used_quantity    TEXT NOT NULL DEFAULT '0',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		UNIQUE (progress_item_id, source_detail_id)
	)`,
	`CREATE TABLE IF NOT EXISTS resource_inventory (
		id            TEXT PRIMARY KEY,
		resource_type TEXT NOT NULL CHECK(resource_type IN ('material','worker','vehicle','team')),
		resource_id   TEXT NOT NULL,
		project_id    TEXT REFERENCES projects(id) ON DELETE CASCADE,
		quantity      TEXT NOT NULL DEFAULT '0',
		active        INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`ALTER TABLE resource_inventory ADD COLUMN version INTEGER NOT NULL DEFAULT 0`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_inventory_key
		ON resource_inventory(resource_type, resource_id, COALESCE(project_id, ''))`,
	`CREATE TABLE IF NOT EXISTS transfer_requests (
		id              TEXT PRIMARY KEY,
		kind            TEXT NOT NULL CHECK(kind IN ('allocation','mobilization')),
		code            TEXT NOT NULL,
		from_project_id TEXT REFERENCES projects(id),
		to_project_id   TEXT NOT NULL REFERENCES projects(id),
		from_task_id    TEXT,
		to_task_id      TEXT,
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK(status IN ('draft','pending','approved','rejected')),
		request_date    TEXT NOT NULL,
		requester_id    TEXT NOT NULL,
		approver_id     TEXT,
		decided_at      TEXT,
		note            TEXT NOT NULL DEFAULT '',
		deleted         INTEGER NOT NULL DEFAULT 0,
		deleted_at      TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`ALTER TABLE transfer_requests ADD COLUMN request_type TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE transfer_requests ADD COLUMN priority TEXT NOT NULL DEFAULT 'normal'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_transfer_live_code ON transfer_requests(kind, code) WHERE deleted = 0`,
	`CREATE INDEX IF NOT EXISTS idx_transfer_status ON transfer_requests(status)`,
	`CREATE TABLE IF NOT EXISTS transfer_lines (
		id            TEXT PRIMARY KEY,
		request_id    TEXT NOT NULL REFERENCES transfer_requests(id) ON DELETE CASCADE,
		line_no       INTEGER NOT NULL,
		resource_type TEXT NOT NULL CHECK(resource_type IN ('material','worker','vehicle','team')),
		resource_id   TEXT NOT NULL,
		quantity      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfer_lines_request ON transfer_lines(request_id)`,
	`CREATE TABLE IF NOT EXISTS plan_edit_leases (
		plan_id     TEXT PRIMARY KEY REFERENCES construction_plans(id) ON DELETE CASCADE,
		holder_id   TEXT NOT NULL,
		acquired_at TEXT NOT NULL,
		expires_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transfer_code_sequences (
		kind     TEXT PRIMARY KEY CHECK(kind IN ('allocation','mobilization')),
		next_seq INTEGER NOT NULL
	)`,
}

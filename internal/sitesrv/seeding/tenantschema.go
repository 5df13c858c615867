package seeding

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// tenantSchema is the baseline schema of every tenant database. It is created
// inside the seed transaction, so a failed seed leaves the database entirely
// empty. Every statement is idempotent to support administrative re-bootstrap.
//
// User-reference columns (owner, actor, locked_by and the membership tables)
// are deliberately plain varchars: the ownership transfer service rewrites
// them table by table when a tenant is cloned from a template.
var tenantSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		profile_id  VARCHAR(128) PRIMARY KEY,
		title       VARCHAR(255),
		description VARCHAR(1024),
		version     VARCHAR(64),
		seeded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		permission_id VARCHAR(128) PRIMARY KEY,
		title         VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		role_id VARCHAR(128) PRIMARY KEY,
		title   VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		role_id       VARCHAR(128) NOT NULL,
		permission_id VARCHAR(128) NOT NULL,
		PRIMARY KEY (role_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		group_id VARCHAR(128) PRIMARY KEY,
		title    VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS group_roles (
		group_id VARCHAR(128) NOT NULL,
		role_id  VARCHAR(128) NOT NULL,
		PRIMARY KEY (group_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id    VARCHAR(128) PRIMARY KEY,
		email      VARCHAR(255),
		name       VARCHAR(255),
		password   VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id VARCHAR(128) NOT NULL,
		role_id VARCHAR(128) NOT NULL,
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		user_id  VARCHAR(128) NOT NULL,
		group_id VARCHAR(128) NOT NULL,
		PRIMARY KEY (user_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS workflows (
		workflow_id   VARCHAR(128) PRIMARY KEY,
		title         VARCHAR(255),
		initial_state VARCHAR(128),
		definition    JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS behaviors (
		behavior_id VARCHAR(128) PRIMARY KEY,
		title       VARCHAR(255),
		schema      JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_types (
		type_id         VARCHAR(128) PRIMARY KEY,
		title           VARCHAR(255),
		workflow_id     VARCHAR(128),
		raw_schema      JSONB NOT NULL,
		resolved_schema JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		uuid         UUID PRIMARY KEY,
		parent_uuid  UUID,
		doc_id       VARCHAR(255) NOT NULL,
		path         TEXT NOT NULL UNIQUE,
		position     INTEGER NOT NULL DEFAULT 0,
		type_id      VARCHAR(128),
		title        VARCHAR(255),
		owner        VARCHAR(128),
		review_state VARCHAR(128),
		language     VARCHAR(32),
		locked_by    VARCHAR(128),
		payload      JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS document_roles (
		uuid    UUID NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		role_id VARCHAR(128) NOT NULL,
		PRIMARY KEY (uuid, user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS versions (
		version_id UUID PRIMARY KEY,
		uuid       UUID NOT NULL,
		actor      VARCHAR(128),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		payload    JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS actions (
		action_id VARCHAR(128) PRIMARY KEY,
		title     VARCHAR(255),
		category  VARCHAR(128),
		url       VARCHAR(1024)
	)`,
	`CREATE TABLE IF NOT EXISTS control_panels (
		panel_id VARCHAR(128) PRIMARY KEY,
		title    VARCHAR(255),
		pgroup   VARCHAR(128),
		schema   JSONB
	)`,
	// catalog rows mirror documents; indexed columns are added per profile by
	// the catalog index migration
	`CREATE TABLE IF NOT EXISTS catalog (
		uuid UUID PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_metadata (
		uuid UUID PRIMARY KEY
	)`,
}

func ensureTenantSchema(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range tenantSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create tenant schema")
			return err
		}
	}
	return nil
}

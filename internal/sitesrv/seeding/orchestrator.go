package seeding

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/profile"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/schema"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/sitecommon"
)

// Seeder runs the profile seeding pipeline against one tenant database.
type Seeder struct {
	db *sql.DB
}

func NewSeeder(db *sql.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed loads the given profiles into the tenant database, in order, inside a
// single transaction. Each phase completes across all profiles before the next
// phase starts, so later profiles can extend what earlier ones declared. Any
// failure other than the catalog-index soft fail rolls the entire run back.
func (s *Seeder) Seed(ctx context.Context, sc *Context, profiles []*profile.Profile) (err apperrors.Error) {
	tx, errdb := s.db.BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start seed transaction")
		return ErrSeedingFailed.Err(errdb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback seed transaction")
			}
		}
	}()

	if errdb := ensureTenantSchema(ctx, tx); errdb != nil {
		return ErrSeedingFailed.Err(errdb)
	}

	// Phase 1: profile metadata, permissions, roles, groups, users, workflows.
	for _, p := range profiles {
		if err = s.seedBaseline(ctx, tx, p); err != nil {
			return err
		}
	}

	// Phase 2: behaviors, inserted and cached for type resolution.
	for _, p := range profiles {
		if err = s.seedBehaviors(ctx, tx, sc, p); err != nil {
			return err
		}
	}

	// Phase 3: content types, resolved against the now-complete cache.
	composer := schema.NewComposer(sc.Behaviors())
	for _, p := range profiles {
		if err = s.seedTypes(ctx, tx, composer, p); err != nil {
			return err
		}
	}

	// Phase 4: catalog index columns (soft fail per index).
	for _, p := range profiles {
		s.seedCatalogIndexes(ctx, tx, p)
	}

	// Phase 5: actions and control panels.
	for _, p := range profiles {
		if err = s.seedActions(ctx, tx, p); err != nil {
			return err
		}
	}

	// Phase 6: document tree.
	for _, p := range profiles {
		if err = s.seedDocuments(ctx, tx, sc, p.Documents); err != nil {
			return err
		}
	}

	if errdb := tx.Commit(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit seed transaction")
		return ErrSeedingFailed.Err(errdb)
	}
	log.Ctx(ctx).Info().Str("tenant_id", sc.TenantID.String()).Int("profiles", len(profiles)).Msg("seeded tenant database")
	return nil
}

func (s *Seeder) seedBaseline(ctx context.Context, tx *sql.Tx, p *profile.Profile) apperrors.Error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (profile_id, title, description, version)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			version = EXCLUDED.version, seeded_at = now()`,
		p.ID, p.Title, p.Description, p.Version)
	if err != nil {
		return seedErr(ctx, "profile", p.ID, err)
	}

	for _, perm := range p.Permissions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO permissions (permission_id, title) VALUES ($1, $2)
			ON CONFLICT (permission_id) DO UPDATE SET title = EXCLUDED.title`,
			perm.ID, perm.Title)
		if err != nil {
			return seedErr(ctx, "permission", perm.ID, err)
		}
	}

	for _, role := range p.Roles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roles (role_id, title) VALUES ($1, $2)
			ON CONFLICT (role_id) DO UPDATE SET title = EXCLUDED.title`,
			role.ID, role.Title)
		if err != nil {
			return seedErr(ctx, "role", role.ID, err)
		}
		for _, perm := range role.Permissions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, role.ID, perm)
			if err != nil {
				return seedErr(ctx, "role permission", role.ID, err)
			}
		}
	}

	for _, group := range p.Groups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO groups (group_id, title) VALUES ($1, $2)
			ON CONFLICT (group_id) DO UPDATE SET title = EXCLUDED.title`,
			group.ID, group.Title)
		if err != nil {
			return seedErr(ctx, "group", group.ID, err)
		}
		for _, role := range group.Roles {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO group_roles (group_id, role_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, group.ID, role)
			if err != nil {
				return seedErr(ctx, "group role", group.ID, err)
			}
		}
	}

	for _, user := range p.Users {
		hash := ""
		if user.Password != "" {
			var hashErr error
			hash, hashErr = sitecommon.HashPassword(user.Password)
			if hashErr != nil {
				return seedErr(ctx, "user", user.ID, hashErr)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (user_id, email, name, password) VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				email = EXCLUDED.email, name = EXCLUDED.name`,
			user.ID, user.Email, user.Name, hash)
		if err != nil {
			return seedErr(ctx, "user", user.ID, err)
		}
		for _, role := range user.Roles {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, user.ID, role)
			if err != nil {
				return seedErr(ctx, "user role", user.ID, err)
			}
		}
		for _, group := range user.Groups {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, user.ID, group)
			if err != nil {
				return seedErr(ctx, "user group", user.ID, err)
			}
		}
	}

	for _, wf := range p.Workflows {
		definition := []byte(wf.Definition)
		if len(definition) == 0 {
			definition = []byte("null")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflows (workflow_id, title, initial_state, definition)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (workflow_id) DO UPDATE SET
				title = EXCLUDED.title, initial_state = EXCLUDED.initial_state,
				definition = EXCLUDED.definition`,
			wf.ID, wf.Title, wf.InitialState, definition)
		if err != nil {
			return seedErr(ctx, "workflow", wf.ID, err)
		}
	}
	return nil
}

func (s *Seeder) seedBehaviors(ctx context.Context, tx *sql.Tx, sc *Context, p *profile.Profile) apperrors.Error {
	for _, b := range p.Behaviors {
		frag := b.Schema
		if frag == nil {
			frag = schema.NewFragment()
		}
		raw, err := frag.CanonicalJSON()
		if err != nil {
			return seedErr(ctx, "behavior", b.ID, err)
		}
		_, errdb := tx.ExecContext(ctx, `
			INSERT INTO behaviors (behavior_id, title, schema) VALUES ($1, $2, $3)
			ON CONFLICT (behavior_id) DO UPDATE SET
				title = EXCLUDED.title, schema = EXCLUDED.schema`,
			b.ID, b.Title, raw)
		if errdb != nil {
			return seedErr(ctx, "behavior", b.ID, errdb)
		}
		sc.CacheBehavior(b.ID, frag)
	}
	return nil
}

func (s *Seeder) seedTypes(ctx context.Context, tx *sql.Tx, composer *schema.Composer, p *profile.Profile) apperrors.Error {
	for _, t := range p.Types {
		own := t.Schema
		if own == nil {
			own = schema.NewFragment()
		}
		resolved, aerr := composer.Resolve(t.Behaviors, own)
		if aerr != nil {
			log.Ctx(ctx).Error().Err(aerr).Str("type_id", t.ID).Msg("failed to resolve type schema")
			return ErrSeedingFailed.Err(aerr).Suffix(t.ID)
		}
		raw, err := own.CanonicalJSON()
		if err != nil {
			return seedErr(ctx, "type", t.ID, err)
		}
		resolvedJSON, err := resolved.CanonicalJSON()
		if err != nil {
			return seedErr(ctx, "type", t.ID, err)
		}
		_, errdb := tx.ExecContext(ctx, `
			INSERT INTO content_types (type_id, title, workflow_id, raw_schema, resolved_schema)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (type_id) DO UPDATE SET
				title = EXCLUDED.title, workflow_id = EXCLUDED.workflow_id,
				raw_schema = EXCLUDED.raw_schema, resolved_schema = EXCLUDED.resolved_schema`,
			t.ID, t.Title, t.Workflow, raw, resolvedJSON)
		if errdb != nil {
			return seedErr(ctx, "type", t.ID, errdb)
		}
	}
	return nil
}

func (s *Seeder) seedActions(ctx context.Context, tx *sql.Tx, p *profile.Profile) apperrors.Error {
	for _, a := range p.Actions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO actions (action_id, title, category, url) VALUES ($1, $2, $3, $4)
			ON CONFLICT (action_id) DO UPDATE SET
				title = EXCLUDED.title, category = EXCLUDED.category, url = EXCLUDED.url`,
			a.ID, a.Title, a.Category, a.URL)
		if err != nil {
			return seedErr(ctx, "action", a.ID, err)
		}
	}
	for _, cp := range p.ControlPanels {
		var panelSchema []byte = []byte("null")
		if cp.Schema != nil {
			var err error
			panelSchema, err = cp.Schema.CanonicalJSON()
			if err != nil {
				return seedErr(ctx, "control panel", cp.ID, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO control_panels (panel_id, title, pgroup, schema) VALUES ($1, $2, $3, $4)
			ON CONFLICT (panel_id) DO UPDATE SET
				title = EXCLUDED.title, pgroup = EXCLUDED.pgroup, schema = EXCLUDED.schema`,
			cp.ID, cp.Title, cp.Group, panelSchema)
		if err != nil {
			return seedErr(ctx, "control panel", cp.ID, err)
		}
	}
	return nil
}

func seedErr(ctx context.Context, kind, id string, err error) apperrors.Error {
	log.Ctx(ctx).Error().Err(err).Str("kind", kind).Str("id", id).Msg("seeding insert failed")
	return ErrSeedingFailed.Err(err).Suffix(kind + " " + id)
}

package postgresql

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dberror"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS sites (
	tenant_id       VARCHAR(64) PRIMARY KEY,
	domain          VARCHAR(255) NOT NULL UNIQUE,
	name            VARCHAR(255) NOT NULL,
	db_host         VARCHAR(255) NOT NULL,
	db_port         INTEGER NOT NULL,
	db_name         VARCHAR(128) NOT NULL,
	db_user         VARCHAR(128) NOT NULL,
	db_password     VARCHAR(255) NOT NULL,
	owner_id        VARCHAR(128) NOT NULL,
	owner_email     VARCHAR(255),
	signing_secret  VARCHAR(64) NOT NULL,
	status          VARCHAR(32) NOT NULL DEFAULT 'provisioning',
	is_active       BOOLEAN NOT NULL DEFAULT true,
	is_bootstrapped BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureRegistrySchema creates the master routing table if absent. Safe to run
// on every startup.
func (rm *registryManager) EnsureRegistrySchema(ctx context.Context) apperrors.Error {
	if _, err := rm.conn().ExecContext(ctx, registrySchema); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to ensure registry schema")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dberror"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// unique_violation
const pgUniqueViolation = "23505"

const siteColumns = `tenant_id, domain, name, db_host, db_port, db_name, db_user, db_password,
		owner_id, owner_email, signing_secret, status, is_active, is_bootstrapped, created_at, updated_at`

// UpsertSite registers or updates a tenant's routing record, keyed by tenant
// id. Domain uniqueness is enforced by the storage layer; an attempt to take a
// domain owned by another tenant fails closed with ErrDomainTaken.
func (rm *registryManager) UpsertSite(ctx context.Context, site *models.Site) apperrors.Error {
	if site.TenantID == "" {
		return dberror.ErrMissingTenantID
	}
	if site.Status == "" {
		site.Status = types.SiteStatusProvisioning
	}

	query := `
		INSERT INTO sites (tenant_id, domain, name, db_host, db_port, db_name, db_user, db_password,
			owner_id, owner_email, signing_secret, status, is_active, is_bootstrapped)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id) DO UPDATE SET
			domain = EXCLUDED.domain,
			name = EXCLUDED.name,
			db_host = EXCLUDED.db_host,
			db_port = EXCLUDED.db_port,
			db_name = EXCLUDED.db_name,
			db_user = EXCLUDED.db_user,
			db_password = EXCLUDED.db_password,
			owner_id = EXCLUDED.owner_id,
			owner_email = EXCLUDED.owner_email,
			signing_secret = EXCLUDED.signing_secret,
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			is_bootstrapped = EXCLUDED.is_bootstrapped,
			updated_at = now()
		RETURNING created_at, updated_at;
	`
	err := rm.conn().QueryRowContext(ctx, query,
		site.TenantID, site.Domain, site.Name, site.DBHost, site.DBPort, site.DBName,
		site.DBUser, site.DBPassword, site.OwnerID, site.OwnerEmail, site.SigningSecret,
		site.Status, site.IsActive, site.IsBootstrapped,
	).Scan(&site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Ctx(ctx).Info().Str("domain", site.Domain).Msg("domain already taken")
			return dberror.ErrDomainTaken.Suffix(site.Domain)
		}
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", site.TenantID.String()).Msg("failed to upsert site")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// GetSiteByDomain resolves an active routing record by its public domain.
// Inactive sites are invisible to routing lookups.
func (rm *registryManager) GetSiteByDomain(ctx context.Context, domain string) (*models.Site, apperrors.Error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE domain = $1 AND is_active = true`
	return rm.scanSite(ctx, rm.conn().QueryRowContext(ctx, query, domain))
}

// GetSite retrieves a routing record by tenant id, active or not.
func (rm *registryManager) GetSite(ctx context.Context, tenantID types.TenantId) (*models.Site, apperrors.Error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE tenant_id = $1`
	return rm.scanSite(ctx, rm.conn().QueryRowContext(ctx, query, tenantID))
}

func (rm *registryManager) scanSite(ctx context.Context, row *sql.Row) (*models.Site, apperrors.Error) {
	var site models.Site
	err := row.Scan(&site.TenantID, &site.Domain, &site.Name, &site.DBHost, &site.DBPort,
		&site.DBName, &site.DBUser, &site.DBPassword, &site.OwnerID, &site.OwnerEmail,
		&site.SigningSecret, &site.Status, &site.IsActive, &site.IsBootstrapped,
		&site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("site not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to load site")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &site, nil
}

// SetSiteStatus updates the provisioning status polled by callers.
func (rm *registryManager) SetSiteStatus(ctx context.Context, tenantID types.TenantId, status types.SiteStatus) apperrors.Error {
	return rm.updateSite(ctx, tenantID,
		`UPDATE sites SET status = $2, updated_at = now() WHERE tenant_id = $1`, status)
}

// SetSiteBootstrapped flags the site as seeded.
func (rm *registryManager) SetSiteBootstrapped(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	return rm.updateSite(ctx, tenantID,
		`UPDATE sites SET is_bootstrapped = true, updated_at = now() WHERE tenant_id = $1`)
}

// SetSiteActive (de)activates a site. Deactivation suspends routing without
// deleting the record.
func (rm *registryManager) SetSiteActive(ctx context.Context, tenantID types.TenantId, active bool) apperrors.Error {
	return rm.updateSite(ctx, tenantID,
		`UPDATE sites SET is_active = $2, updated_at = now() WHERE tenant_id = $1`, active)
}

// UpdateSiteDomain reassigns the site's public domain. Fails closed with
// ErrDomainTaken when the domain is already assigned to another tenant.
func (rm *registryManager) UpdateSiteDomain(ctx context.Context, tenantID types.TenantId, domain string) apperrors.Error {
	err := rm.updateSite(ctx, tenantID,
		`UPDATE sites SET domain = $2, updated_at = now() WHERE tenant_id = $1`, domain)
	if err != nil && err.Is(dberror.ErrDatabase) {
		var raw []error = err.Unwrap()
		for _, e := range raw {
			if isUniqueViolation(e) {
				return dberror.ErrDomainTaken.Suffix(domain)
			}
		}
	}
	return err
}

// DeleteSite removes the routing record on tenant teardown.
func (rm *registryManager) DeleteSite(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	result, err := rm.conn().ExecContext(ctx, `DELETE FROM sites WHERE tenant_id = $1`, tenantID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to delete site")
		return dberror.ErrDatabase.Err(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("site not found")
	}
	return nil
}

// ListSites returns all routing records, active and inactive.
func (rm *registryManager) ListSites(ctx context.Context) ([]*models.Site, apperrors.Error) {
	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY created_at`
	rows, err := rm.conn().QueryContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list sites")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var sites []*models.Site
	for rows.Next() {
		var site models.Site
		err := rows.Scan(&site.TenantID, &site.Domain, &site.Name, &site.DBHost, &site.DBPort,
			&site.DBName, &site.DBUser, &site.DBPassword, &site.OwnerID, &site.OwnerEmail,
			&site.SigningSecret, &site.Status, &site.IsActive, &site.IsBootstrapped,
			&site.CreatedAt, &site.UpdatedAt)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		sites = append(sites, &site)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return sites, nil
}

func (rm *registryManager) updateSite(ctx context.Context, tenantID types.TenantId, query string, args ...any) apperrors.Error {
	if tenantID == "" {
		return dberror.ErrMissingTenantID
	}
	allArgs := append([]any{tenantID}, args...)
	result, err := rm.conn().ExecContext(ctx, query, allArgs...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to update site")
		return dberror.ErrDatabase.Err(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("site not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

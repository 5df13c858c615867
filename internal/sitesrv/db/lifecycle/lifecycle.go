// Package lifecycle owns the existence of tenant databases: create, clone,
// drop, existence checks. All operations run on the admin connection against
// the platform database; CREATE/DROP DATABASE cannot run inside a transaction.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	srvconfig "github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dberror"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dbmanager"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

const (
	dbNamePrefix = "ls_"

	cloneAttempts = 3
)

var (
	cloneRetryDelay = 500 * time.Millisecond
	// grace period for terminated sessions to fully close before the next
	// clone attempt
	drainWait = 300 * time.Millisecond
)

// pgObjectInUse is the SQLSTATE PostgreSQL raises when a database that still
// has connected sessions is used as a clone template.
const pgObjectInUse = "55006"

type Controller struct {
	pool dbmanager.Pool
}

func NewController(pool dbmanager.Pool) *Controller {
	return &Controller{pool: pool}
}

// DatabaseName derives the tenant's database name from its id: lower-cased,
// non-alphanumeric runes stripped, prefixed. Deterministic, so repeated
// provisioning of the same tenant always targets the same database.
func DatabaseName(tenantID types.TenantId) string {
	var b strings.Builder
	for _, r := range strings.ToLower(string(tenantID)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return dbNamePrefix + b.String()
}

// Descriptor returns the externally reachable connection form for a tenant
// database, without touching the database itself.
func Descriptor(tenantID types.TenantId) models.DatabaseDescriptor {
	host := config.Host()
	if ext := srvconfig.Config().ExternalDBHost; ext != "" {
		host = ext
	}
	return models.DatabaseDescriptor{
		Host:     host,
		Port:     config.Port(),
		DBName:   DatabaseName(tenantID),
		User:     config.User(),
		Password: config.Password(),
	}
}

// CreateDatabase creates the tenant's database if it does not exist yet and
// returns its connection descriptor. Idempotent: an existing database is left
// untouched.
func (c *Controller) CreateDatabase(ctx context.Context, tenantID types.TenantId) (models.DatabaseDescriptor, apperrors.Error) {
	if tenantID == "" {
		return models.DatabaseDescriptor{}, dberror.ErrMissingTenantID
	}
	dbname := DatabaseName(tenantID)

	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return models.DatabaseDescriptor{}, dberror.ErrDatabase.Err(err)
	}
	defer conn.Close(ctx)

	exists, aerr := c.exists(ctx, conn, dbname)
	if aerr != nil {
		return models.DatabaseDescriptor{}, aerr
	}
	if exists {
		log.Ctx(ctx).Info().Str("dbname", dbname).Msg("database already exists")
		return Descriptor(tenantID), nil
	}

	_, err = conn.Conn().ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbname))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to create database")
		return models.DatabaseDescriptor{}, dberror.ErrDatabase.Err(err)
	}
	log.Ctx(ctx).Info().Str("dbname", dbname).Msg("created database")
	return Descriptor(tenantID), nil
}

// DatabaseExists reports whether the tenant's database exists. No side effects.
func (c *Controller) DatabaseExists(ctx context.Context, tenantID types.TenantId) (bool, apperrors.Error) {
	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return false, dberror.ErrDatabase.Err(err)
	}
	defer conn.Close(ctx)
	return c.exists(ctx, conn, DatabaseName(tenantID))
}

func (c *Controller) exists(ctx context.Context, conn dbmanager.Conn, dbname string) (bool, apperrors.Error) {
	var one int
	err := conn.Conn().QueryRowContext(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, dbname).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to check database existence")
		return false, dberror.ErrDatabase.Err(err)
	}
	return true, nil
}

// DropDatabase terminates all sessions against the tenant's database and drops
// it if present. Destructive and irreversible.
func (c *Controller) DropDatabase(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	dbname := DatabaseName(tenantID)

	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	defer conn.Close(ctx)

	if aerr := c.terminateSessions(ctx, conn, dbname); aerr != nil {
		return aerr
	}
	_, err = conn.Conn().ExecContext(ctx, "DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(dbname))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to drop database")
		return dberror.ErrDatabase.Err(err)
	}
	log.Ctx(ctx).Info().Str("dbname", dbname).Msg("dropped database")
	return nil
}

// CloneDatabase creates the target tenant's database as a copy-on-write clone
// of the source tenant's database. An existing target is dropped first, so the
// operation overwrites. The source must have no connected sessions for the
// clone to succeed; sessions are terminated before each attempt and a busy
// source is retried with backoff. Any other failure aborts immediately.
func (c *Controller) CloneDatabase(ctx context.Context, sourceTenantID, targetTenantID types.TenantId) (models.DatabaseDescriptor, apperrors.Error) {
	if sourceTenantID == "" || targetTenantID == "" {
		return models.DatabaseDescriptor{}, dberror.ErrMissingTenantID
	}
	source := DatabaseName(sourceTenantID)
	target := DatabaseName(targetTenantID)

	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return models.DatabaseDescriptor{}, dberror.ErrDatabase.Err(err)
	}
	defer conn.Close(ctx)

	// Clone overwrites: a leftover target from an earlier failed run is
	// dropped, sessions and all.
	if aerr := c.terminateSessions(ctx, conn, target); aerr != nil {
		return models.DatabaseDescriptor{}, aerr
	}
	if _, err := conn.Conn().ExecContext(ctx, "DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(target)); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", target).Msg("failed to drop stale target database")
		return models.DatabaseDescriptor{}, dberror.ErrDatabase.Err(err)
	}

	cloneStmt := "CREATE DATABASE " + pq.QuoteIdentifier(target) + " TEMPLATE " + pq.QuoteIdentifier(source)
	err = cloneWithRetry(ctx, source,
		func() error {
			if aerr := c.terminateSessions(ctx, conn, source); aerr != nil {
				return aerr
			}
			return nil
		},
		func() error {
			_, execErr := conn.Conn().ExecContext(ctx, cloneStmt)
			return execErr
		})
	if err != nil {
		var aerr apperrors.Error
		if errors.As(err, &aerr) {
			return models.DatabaseDescriptor{}, aerr
		}
		if IsSourceBusy(err) {
			log.Ctx(ctx).Error().Err(err).Str("source", source).Str("target", target).Msg("clone failed, source still busy after retries")
			return models.DatabaseDescriptor{}, dberror.ErrSourceBusy.Err(err)
		}
		log.Ctx(ctx).Error().Err(err).Str("source", source).Str("target", target).Msg("clone failed")
		return models.DatabaseDescriptor{}, dberror.ErrCloneFailed.Err(err)
	}

	log.Ctx(ctx).Info().Str("source", source).Str("target", target).Msg("cloned database")
	return Descriptor(targetTenantID), nil
}

// cloneWithRetry is the busy-retry policy around the clone statement: before
// each attempt sessions on the source are terminated and given a moment to
// drain; a busy source (SQLSTATE 55006) is retried with backoff up to
// cloneAttempts, anything else aborts the loop immediately.
func cloneWithRetry(ctx context.Context, source string, terminate func() error, exec func() error) error {
	return retry.Do(func() error {
		if err := terminate(); err != nil {
			return retry.Unrecoverable(err)
		}
		// give terminated backends a moment to fully disconnect
		time.Sleep(drainWait)
		execErr := exec()
		if execErr == nil {
			return nil
		}
		if IsSourceBusy(execErr) {
			return execErr
		}
		return retry.Unrecoverable(execErr)
	},
		retry.Attempts(cloneAttempts),
		retry.Delay(cloneRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Str("source", source).Msg("clone attempt failed, source busy")
		}),
	)
}

func (c *Controller) terminateSessions(ctx context.Context, conn dbmanager.Conn, dbname string) apperrors.Error {
	_, err := conn.Conn().ExecContext(ctx,
		`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`, dbname)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to terminate sessions")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// IsSourceBusy reports whether err is the "source database is being accessed
// by other users" condition, the only clone failure worth retrying.
func IsSourceBusy(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgObjectInUse
	}
	return false
}

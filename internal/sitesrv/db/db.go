package db

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dbmanager"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/postgresql"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// RegistryManager is the master routing registry: the shared table mapping
// public domains to tenant database connection facts.
type RegistryManager interface {
	EnsureRegistrySchema(ctx context.Context) apperrors.Error

	UpsertSite(ctx context.Context, site *models.Site) apperrors.Error
	GetSite(ctx context.Context, tenantID types.TenantId) (*models.Site, apperrors.Error)
	GetSiteByDomain(ctx context.Context, domain string) (*models.Site, apperrors.Error)
	ListSites(ctx context.Context) ([]*models.Site, apperrors.Error)

	SetSiteStatus(ctx context.Context, tenantID types.TenantId, status types.SiteStatus) apperrors.Error
	SetSiteBootstrapped(ctx context.Context, tenantID types.TenantId) apperrors.Error
	SetSiteActive(ctx context.Context, tenantID types.TenantId, active bool) apperrors.Error
	UpdateSiteDomain(ctx context.Context, tenantID types.TenantId, domain string) apperrors.Error
	DeleteSite(ctx context.Context, tenantID types.TenantId) apperrors.Error
}

type ConnectionManager interface {
	// Close the connection to the database.
	Close(ctx context.Context)
}

type DB_ interface {
	RegistryManager
	ConnectionManager
}

var (
	pool     dbmanager.Pool
	poolOnce sync.Once
)

// Pool exposes the shared platform pool for components that manage their own
// connections (database lifecycle operations). The pool is created on first
// use so config has been loaded by then.
func Pool() dbmanager.Pool {
	poolOnce.Do(func() {
		ctx := log.Logger.WithContext(context.Background())
		pg := dbmanager.NewPool(ctx, "postgresql")
		if pg == nil {
			panic("unable to create db pool")
		}
		pool = pg
	})
	return pool
}

func Conn(ctx context.Context) dbmanager.Conn {
	if p := Pool(); p != nil {
		conn, err := p.Conn(ctx)
		if err == nil {
			return conn
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
	}
	return nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "PlatformDb"

func ConnCtx(ctx context.Context) context.Context {
	conn := Conn(ctx)
	if conn == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxDbKey, newPlatformDb(conn))
}

type platformDb struct {
	RegistryManager
	ConnectionManager
}

func newPlatformDb(conn dbmanager.Conn) DB_ {
	rm := postgresql.NewPlatformDb(conn)
	return &platformDb{
		RegistryManager:   rm,
		ConnectionManager: rm,
	}
}

// DB returns the platform database facade stored in ctx by ConnCtx.
func DB(ctx context.Context) DB_ {
	if db, ok := ctx.Value(ctxDbKey).(DB_); ok {
		return db
	}
	return nil
}

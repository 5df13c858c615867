// Package dbmanager provides the PostgreSQL connection pool for the platform
// database and ad hoc connections into tenant databases.
package dbmanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/rs/zerolog/log"
)

type postgresConn struct {
	conn   *sql.Conn
	cancel context.CancelFunc
	pool   *postgresPool
}

type postgresPool struct {
	connRequests uint64
	connReturns  uint64
	db           *sql.DB
}

// NewPostgresqlPool creates the connection pool for the platform database.
func NewPostgresqlPool() (Pool, error) {
	dsn := config.PlatformDsn()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Error().Err(err).Msg("failed to open db")
		return nil, err
	}

	err = sqlDB.Ping()
	if err != nil {
		log.Error().Err(err).Msg("failed to ping db")
		return nil, err
	}

	return &postgresPool{
		db: sqlDB,
	}, nil
}

// Conn returns a new connection to the platform database from the pool.
func (p *postgresPool) Conn(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, err
	}

	// Registry writes are short; database-level create/clone/drop are not, so
	// only the lock timeout is bounded here.
	_, err = conn.ExecContext(ctx, "SET lock_timeout = '5s'")
	if err != nil {
		log.Error().Err(err).Msg("failed to set lock timeout")
		cancel()
		conn.Close()
		return nil, err
	}

	p.connRequests++
	return &postgresConn{
		cancel: cancel,
		pool:   p,
		conn:   conn,
	}, nil
}

// Stats returns the number of connection requests and returns.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return p.connRequests, p.connReturns
}

// Close returns the connection back to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	if h.cancel != nil {
		h.cancel()
	}
	if h.conn != nil {
		h.conn.Close()
	}
	h.pool.connReturns++
}

// Conn returns the underlying connection.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}

// OpenTenant opens a connection pool against a single tenant database and
// verifies it is reachable. The caller owns the returned handle.
func OpenTenant(ctx context.Context, dbname string) (*sql.DB, error) {
	return openDsn(ctx, config.TenantDsn(dbname), dbname)
}

// OpenDescriptor opens a tenant database from an explicit connection
// descriptor, as supplied by the administrative re-bootstrap interface.
func OpenDescriptor(ctx context.Context, desc models.DatabaseDescriptor) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		desc.Host, desc.Port, desc.User, desc.Password, desc.DBName)
	return openDsn(ctx, dsn, desc.DBName)
}

func openDsn(ctx context.Context, dsn, dbname string) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to open tenant db")
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dbname", dbname).Msg("failed to ping tenant db")
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

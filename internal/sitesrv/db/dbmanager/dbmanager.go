package dbmanager

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// Pool hands out connections against the shared platform database. Tenant
// databases are opened ad hoc with OpenTenant instead; they live and die with
// a single provisioning or seeding run.
type Pool interface {
	// Conn returns a new connection to the platform database.
	Conn(ctx context.Context) (Conn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
}

type Conn interface {
	// Conn returns the underlying connection.
	Conn() *sql.Conn
	// Close returns the connection back to the pool.
	Close(ctx context.Context)
}

func NewPool(ctx context.Context, dbtype string) Pool {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlPool()
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to create PostgreSQL pool")
			return nil
		}
		return db
	}
	return nil
}

// Package postgresql implements the master routing registry over the shared
// platform database.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dbmanager"
)

type registryManager struct {
	c dbmanager.Conn
}

func NewPlatformDb(c dbmanager.Conn) *registryManager {
	return &registryManager{c: c}
}

func (rm *registryManager) conn() *sql.Conn {
	return rm.c.Conn()
}

// Close returns the underlying connection to the pool.
func (rm *registryManager) Close(ctx context.Context) {
	rm.c.Close(ctx)
}

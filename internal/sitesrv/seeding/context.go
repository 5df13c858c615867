// Package seeding populates a freshly created tenant database from declarative
// profiles, atomically: one transaction per seed run, upsert-by-key semantics
// throughout, so re-running a seed against an already-seeded database is a
// no-op.
package seeding

import (
	"net/http"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/schema"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var (
	ErrSeeding       apperrors.Error = apperrors.New("seeding error").SetStatusCode(http.StatusInternalServerError)
	ErrSeedingFailed apperrors.Error = ErrSeeding.New("seeding failed").SetStatusCode(http.StatusInternalServerError)
)

// Context carries the per-run seeding state: the behavior cache the schema
// composer resolves against, and per-parent position counters for the document
// importer. One Context per seed run; never shared across tenants, which makes
// concurrent seeding of distinct tenants safe by construction.
type Context struct {
	TenantID types.TenantId

	behaviors map[string]*schema.Fragment
	positions map[string]int
}

func NewContext(tenantID types.TenantId) *Context {
	return &Context{
		TenantID:  tenantID,
		behaviors: map[string]*schema.Fragment{},
		positions: map[string]int{},
	}
}

// CacheBehavior records a behavior fragment for later type resolution.
// Behaviors from later profiles override earlier ones by id.
func (sc *Context) CacheBehavior(id string, frag *schema.Fragment) {
	sc.behaviors[id] = frag
}

// Behaviors returns the accumulated behavior cache.
func (sc *Context) Behaviors() map[string]*schema.Fragment {
	return sc.behaviors
}

// NextPosition assigns the next sibling position under the given parent path.
// Counters are purely in-memory, so the same profile set always yields the
// same positions.
func (sc *Context) NextPosition(parentPath string) int {
	n := sc.positions[parentPath]
	sc.positions[parentPath] = n + 1
	return n
}

// ReservePosition bumps the counter past an explicitly declared position.
func (sc *Context) ReservePosition(parentPath string, pos int) {
	if pos >= sc.positions[parentPath] {
		sc.positions[parentPath] = pos + 1
	}
}

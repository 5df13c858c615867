package ownership

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dbmanager"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/lifecycle"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/profile"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/seeding"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/sitecommon"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// newTemplateDb provisions a scratch tenant database seeded like a template:
// a reserved admin account plus one primary user with content attributed to
// both identities across every reference table.
func newTemplateDb(t *testing.T, tenantID types.TenantId) (context.Context, *sql.DB) {
	t.Helper()
	ctx := log.Logger.WithContext(context.Background())
	ctrl := lifecycle.NewController(db.Pool())
	_, aerr := ctrl.CreateDatabase(ctx, tenantID)
	require.Nil(t, aerr)
	tdb, err := dbmanager.OpenTenant(ctx, lifecycle.DatabaseName(tenantID))
	require.NoError(t, err)
	t.Cleanup(func() {
		tdb.Close()
		ctrl.DropDatabase(ctx, tenantID)
	})

	p := &profile.Profile{
		ID:      "template",
		Title:   "Template Profile",
		Version: "1.0.0",
		Roles: []profile.Role{
			{ID: "manager", Title: "Manager"},
		},
		Groups: []profile.Group{
			{ID: "editors", Title: "Editors", Roles: []string{"manager"}},
		},
		Users: []profile.User{
			{ID: "admin", Name: "Administrator", Roles: []string{"manager"}, Groups: []string{"editors"}},
			{ID: "jane", Email: "jane@lunasites.test", Name: "Jane", Roles: []string{"manager"}, Groups: []string{"editors"}},
		},
		Documents: []profile.DocumentFile{
			{Name: types.RootDocumentName, Data: []byte(`{"type": "site", "title": "Home"}`)},
			{Name: "news", Data: []byte(`{"type": "folder", "title": "News", "owner": "jane", "locked_by": "jane"}`)},
		},
	}
	require.Nil(t, seeding.NewSeeder(tdb).Seed(ctx, seeding.NewContext(tenantID), []*profile.Profile{p}))

	var docUUID uuid.UUID
	require.NoError(t, tdb.QueryRowContext(ctx, `SELECT uuid FROM documents WHERE path = '/news'`).Scan(&docUUID))
	for _, actor := range []string{"jane", "admin"} {
		_, err := tdb.ExecContext(ctx, `
			INSERT INTO versions (version_id, uuid, actor, payload) VALUES ($1, $2, $3, 'null')`,
			uuid.New(), docUUID, actor)
		require.NoError(t, err)
	}
	_, err = tdb.ExecContext(ctx, `
		INSERT INTO document_roles (uuid, user_id, role_id) VALUES ($1, 'jane', 'manager')`, docUUID)
	require.NoError(t, err)
	return ctx, tdb
}

func countRefs(t *testing.T, ctx context.Context, tdb *sql.DB, table, column, id string) int {
	t.Helper()
	var n int
	stmt := "SELECT count(*) FROM " + table + " WHERE " + column + " = $1"
	require.NoError(t, tdb.QueryRowContext(ctx, stmt, id).Scan(&n))
	return n
}

func TestTransferRewritesAllReferences(t *testing.T) {
	ctx, tdb := newTemplateDb(t, types.TenantId("ttransfer"))

	newOwner := sitecommon.UserIdentity{ID: "acme-owner", Email: "owner@acme.test", Name: "Acme Owner"}
	require.Nil(t, Transfer(ctx, tdb, newOwner))

	// no table may still attribute anything to the template's primary user or
	// to the retired reserved admin
	for _, ref := range userReferences {
		assert.Zero(t, countRefs(t, ctx, tdb, ref[0], ref[1], "jane"), "%s.%s still references old owner", ref[0], ref[1])
		assert.Zero(t, countRefs(t, ctx, tdb, ref[0], ref[1], "admin"), "%s.%s still references reserved admin", ref[0], ref[1])
	}
	assert.Zero(t, countRefs(t, ctx, tdb, "users", "user_id", "jane"))
	assert.Zero(t, countRefs(t, ctx, tdb, "users", "user_id", "admin"))

	assert.Equal(t, 1, countRefs(t, ctx, tdb, "users", "user_id", "acme-owner"))
	assert.Equal(t, 1, countRefs(t, ctx, tdb, "user_roles", "user_id", "acme-owner"))
	// the root document was admin-owned and must have been reassigned, not
	// orphaned; both version rows follow
	assert.Equal(t, 2, countRefs(t, ctx, tdb, "documents", "owner", "acme-owner"))
	assert.Equal(t, 2, countRefs(t, ctx, tdb, "versions", "actor", "acme-owner"))

	var email string
	require.NoError(t, tdb.QueryRowContext(ctx, `SELECT email FROM users WHERE user_id = 'acme-owner'`).Scan(&email))
	assert.Equal(t, "owner@acme.test", email)

	// transferring again to the same owner is a no-op
	require.Nil(t, Transfer(ctx, tdb, newOwner))
	assert.Equal(t, 1, countRefs(t, ctx, tdb, "users", "user_id", "acme-owner"))
}

func TestTransferIntoEmptyTemplate(t *testing.T) {
	ctx, tdb := newTemplateDb(t, types.TenantId("ttransferb"))
	for _, stmt := range []string{`DELETE FROM user_roles`, `DELETE FROM user_groups`, `DELETE FROM users`} {
		_, err := tdb.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	// with no primary user to rename the owner is inserted fresh
	newOwner := sitecommon.UserIdentity{ID: "acme-owner", Email: "owner@acme.test", Name: "Acme Owner"}
	require.Nil(t, Transfer(ctx, tdb, newOwner))
	assert.Equal(t, 1, countRefs(t, ctx, tdb, "users", "user_id", "acme-owner"))
	assert.Equal(t, 1, countRefs(t, ctx, tdb, "user_roles", "user_id", "acme-owner"))
}

func TestTransferRejectsBadIdentity(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())

	// both guards fire before any database work, so no connection is needed
	err := Transfer(ctx, nil, sitecommon.UserIdentity{})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrTransfer)

	for _, reserved := range []types.UserId{types.SystemUserAdmin, types.SystemUserSystem, types.SystemUserAnonymous} {
		err := Transfer(ctx, nil, sitecommon.UserIdentity{ID: reserved})
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrTransfer)
		assert.Contains(t, err.Error(), "reserved account")
	}
}

package db

import (
	"context"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dberror"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

func newDb(c ...context.Context) context.Context {
	var ctx context.Context
	if len(c) > 0 {
		ctx = ConnCtx(c[0])
	} else {
		ctx = ConnCtx(log.Logger.WithContext(context.Background()))
	}
	return ctx
}

func testSite(tenantID types.TenantId) *models.Site {
	return &models.Site{
		TenantID:      tenantID,
		Domain:        tenantID.String() + ".lunasites.test",
		Name:          "Test Site",
		DBHost:        "localhost",
		DBPort:        5432,
		DBName:        "ls_" + tenantID.String(),
		DBUser:        "sites_api",
		DBPassword:    "abc@123",
		OwnerID:       "owner-1",
		OwnerEmail:    "owner@lunasites.test",
		SigningSecret: "test-secret",
		Status:        types.SiteStatusProvisioning,
		IsActive:      true,
	}
}

func TestUpsertAndGetSite(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.NotNil(t, DB(ctx))
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	tenantID := types.TenantId("tupsert")
	defer DB(ctx).DeleteSite(ctx, tenantID)

	site := testSite(tenantID)
	err := DB(ctx).UpsertSite(ctx, site)
	assert.Nil(t, err)
	assert.False(t, site.CreatedAt.IsZero())

	got, err := DB(ctx).GetSite(ctx, tenantID)
	assert.Nil(t, err)
	require.NotNil(t, got)
	assert.Equal(t, site.Domain, got.Domain)
	assert.Equal(t, types.SiteStatusProvisioning, got.Status)
	assert.False(t, got.IsBootstrapped)

	// upsert with the same tenant id updates in place
	site.Name = "Renamed"
	err = DB(ctx).UpsertSite(ctx, site)
	assert.Nil(t, err)
	got, err = DB(ctx).GetSite(ctx, tenantID)
	assert.Nil(t, err)
	assert.Equal(t, "Renamed", got.Name)

	_, err = DB(ctx).GetSite(ctx, "nonexistent")
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestGetSiteByDomain(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	tenantID := types.TenantId("tdomain")
	defer DB(ctx).DeleteSite(ctx, tenantID)

	site := testSite(tenantID)
	require.Nil(t, DB(ctx).UpsertSite(ctx, site))

	got, err := DB(ctx).GetSiteByDomain(ctx, site.Domain)
	assert.Nil(t, err)
	assert.Equal(t, tenantID, got.TenantID)

	// deactivated sites do not resolve
	require.Nil(t, DB(ctx).SetSiteActive(ctx, tenantID, false))
	_, err = DB(ctx).GetSiteByDomain(ctx, site.Domain)
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestDomainConflict(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	first := types.TenantId("tconflicta")
	second := types.TenantId("tconflictb")
	defer DB(ctx).DeleteSite(ctx, first)
	defer DB(ctx).DeleteSite(ctx, second)

	a := testSite(first)
	require.Nil(t, DB(ctx).UpsertSite(ctx, a))

	b := testSite(second)
	b.Domain = a.Domain
	err := DB(ctx).UpsertSite(ctx, b)
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrDomainTaken)

	// renaming onto a taken domain fails the same way
	b.Domain = second.String() + ".lunasites.test"
	require.Nil(t, DB(ctx).UpsertSite(ctx, b))
	err = DB(ctx).UpdateSiteDomain(ctx, second, a.Domain)
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrDomainTaken)
}

func TestSiteStatusTransitions(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	tenantID := types.TenantId("tstatus")
	defer DB(ctx).DeleteSite(ctx, tenantID)
	require.Nil(t, DB(ctx).UpsertSite(ctx, testSite(tenantID)))

	require.Nil(t, DB(ctx).SetSiteBootstrapped(ctx, tenantID))
	require.Nil(t, DB(ctx).SetSiteStatus(ctx, tenantID, types.SiteStatusReady))

	got, err := DB(ctx).GetSite(ctx, tenantID)
	assert.Nil(t, err)
	assert.True(t, got.IsBootstrapped)
	assert.Equal(t, types.SiteStatusReady, got.Status)

	err = DB(ctx).SetSiteStatus(ctx, "nonexistent", types.SiteStatusReady)
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestListSites(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	first := types.TenantId("tlista")
	second := types.TenantId("tlistb")
	defer DB(ctx).DeleteSite(ctx, first)
	defer DB(ctx).DeleteSite(ctx, second)
	require.Nil(t, DB(ctx).UpsertSite(ctx, testSite(first)))
	require.Nil(t, DB(ctx).UpsertSite(ctx, testSite(second)))

	sites, err := DB(ctx).ListSites(ctx)
	assert.Nil(t, err)

	seen := map[types.TenantId]bool{}
	for _, s := range sites {
		seen[s.TenantID] = true
	}
	assert.True(t, seen[first])
	assert.True(t, seen[second])
}

func TestDeleteSite(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)
	require.Nil(t, DB(ctx).EnsureRegistrySchema(ctx))

	tenantID := types.TenantId("tdelete")
	require.Nil(t, DB(ctx).UpsertSite(ctx, testSite(tenantID)))
	require.Nil(t, DB(ctx).DeleteSite(ctx, tenantID))

	_, err := DB(ctx).GetSite(ctx, tenantID)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	err = DB(ctx).DeleteSite(ctx, tenantID)
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

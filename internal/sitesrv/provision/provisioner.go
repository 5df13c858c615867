// Package provision ties the provisioning pipeline together: database
// lifecycle, seeding or ownership transfer, and the master routing registry.
package provision

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/dbmanager"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/lifecycle"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/models"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/ownership"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/profile"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/seeding"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/sitecommon"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var (
	ErrProvisioning   apperrors.Error = apperrors.New("provisioning error").SetStatusCode(http.StatusInternalServerError)
	ErrDeployNotReady apperrors.Error = ErrProvisioning.New("deployment not ready").SetStatusCode(http.StatusServiceUnavailable)
)

// Request carries the externally validated provisioning inputs.
type Request struct {
	TenantID   types.TenantId
	Name       string
	TemplateID types.TenantId
	Owner      sitecommon.UserIdentity
}

// Provisioner provisions, re-bootstraps and tears down tenants.
type Provisioner struct {
	lc       *lifecycle.Controller
	profiles fs.FS
	names    []string
	poller   *DeployPoller
}

// NewProvisioner builds a provisioner over the shared platform pool. names is
// the ordered list of profiles seeded into every fresh tenant.
func NewProvisioner(profiles fs.FS, names []string) *Provisioner {
	return &Provisioner{
		lc:       lifecycle.NewController(db.Pool()),
		profiles: profiles,
		names:    names,
	}
}

// WithDeployPoller attaches the external hosting status check.
func (p *Provisioner) WithDeployPoller(poller *DeployPoller) *Provisioner {
	p.poller = poller
	return p
}

// CreateSite registers the tenant's routing record synchronously (domain
// conflicts surface to the caller immediately) and dispatches the database
// work to the background. The returned site is in status "provisioning";
// callers poll the registry for the outcome.
func (p *Provisioner) CreateSite(ctx context.Context, req Request, d *Dispatcher) (*models.Site, apperrors.Error) {
	if req.TenantID == "" {
		return nil, ErrProvisioning.Msg("missing tenant id")
	}
	desc := lifecycle.Descriptor(req.TenantID)
	site := &models.Site{
		TenantID:      req.TenantID,
		Domain:        req.TenantID.String() + "." + config.Config().BaseDomain,
		Name:          req.Name,
		DBHost:        desc.Host,
		DBPort:        desc.Port,
		DBName:        desc.DBName,
		DBUser:        desc.User,
		DBPassword:    desc.Password,
		OwnerID:       req.Owner.ID,
		OwnerEmail:    req.Owner.Email,
		SigningSecret: sitecommon.NewSigningSecret(),
		Status:        types.SiteStatusProvisioning,
		IsActive:      true,
	}
	if err := db.DB(ctx).UpsertSite(ctx, site); err != nil {
		return nil, err
	}

	tenantID := req.TenantID
	d.Submit("provision "+tenantID.String(), func(taskCtx context.Context) error {
		return p.provision(taskCtx, req)
	}, func(taskErr error) {
		p.finish(tenantID, taskErr)
	})
	return site, nil
}

// provision is the background body: create or clone the database, then seed
// (fresh) or transfer ownership (cloned), then flag the site bootstrapped.
func (p *Provisioner) provision(ctx context.Context, req Request) error {
	ctx = sitecommon.SetTenantIdInContext(ctx, req.TenantID)

	if req.TemplateID != "" {
		if _, err := p.lc.CloneDatabase(ctx, req.TemplateID, req.TenantID); err != nil {
			return err
		}
		tenantDB, err := dbmanager.OpenTenant(ctx, lifecycle.DatabaseName(req.TenantID))
		if err != nil {
			return err
		}
		defer tenantDB.Close()
		if err := ownership.Transfer(ctx, tenantDB, req.Owner); err != nil {
			return err
		}
	} else {
		if _, err := p.lc.CreateDatabase(ctx, req.TenantID); err != nil {
			return err
		}
		tenantDB, err := dbmanager.OpenTenant(ctx, lifecycle.DatabaseName(req.TenantID))
		if err != nil {
			return err
		}
		defer tenantDB.Close()
		if err := p.seed(ctx, tenantDB, req.TenantID); err != nil {
			return err
		}
	}

	rctx := db.ConnCtx(ctx)
	platform := db.DB(rctx)
	if platform == nil {
		return ErrProvisioning.Msg("platform database unavailable")
	}
	defer platform.Close(rctx)
	return platform.SetSiteBootstrapped(rctx, req.TenantID)
}

func (p *Provisioner) seed(ctx context.Context, tenantDB *sql.DB, tenantID types.TenantId) apperrors.Error {
	profiles, aerr := p.loadProfiles()
	if aerr != nil {
		return aerr
	}
	sc := seeding.NewContext(tenantID)
	return seeding.NewSeeder(tenantDB).Seed(ctx, sc, profiles)
}

// finish is the task completion callback: it records the terminal status the
// caller's polling will observe.
func (p *Provisioner) finish(tenantID types.TenantId, taskErr error) {
	ctx := db.ConnCtx(log.Logger.WithContext(context.Background()))
	platform := db.DB(ctx)
	if platform == nil {
		log.Error().Str("tenant_id", tenantID.String()).Msg("cannot record provisioning outcome")
		return
	}
	defer platform.Close(ctx)

	if taskErr != nil {
		log.Ctx(ctx).Error().Err(taskErr).Str("tenant_id", tenantID.String()).Msg("provisioning failed")
		if err := platform.SetSiteStatus(ctx, tenantID, types.SiteStatusError); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to record error status")
		}
		return
	}

	status := types.SiteStatusReady
	if p.poller != nil && !p.poller.Wait(ctx) {
		status = types.SiteStatusPending
	}
	if err := platform.SetSiteStatus(ctx, tenantID, status); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to record provisioning status")
	}
}

// Rebootstrap re-runs the seeding pipeline against an already-provisioned
// database. The upsert-by-key seeding semantics make this safe; it is the
// administrative re-seed path, not a special one.
func (p *Provisioner) Rebootstrap(ctx context.Context, tenantID types.TenantId, desc models.DatabaseDescriptor) apperrors.Error {
	tenantDB, err := dbmanager.OpenDescriptor(ctx, desc)
	if err != nil {
		return ErrProvisioning.Err(err)
	}
	defer tenantDB.Close()

	profiles, aerr := p.loadProfiles()
	if aerr != nil {
		return aerr
	}
	sc := seeding.NewContext(tenantID)
	return seeding.NewSeeder(tenantDB).Seed(ctx, sc, profiles)
}

// Teardown drops the tenant database and removes the routing record,
// regardless of how far provisioning got.
func (p *Provisioner) Teardown(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	if err := p.lc.DropDatabase(ctx, tenantID); err != nil {
		return err
	}
	if err := db.DB(ctx).DeleteSite(ctx, tenantID); err != nil && err.StatusCode() != http.StatusNotFound {
		return err
	}
	return nil
}

func (p *Provisioner) loadProfiles() ([]*profile.Profile, apperrors.Error) {
	var profiles []*profile.Profile
	for _, name := range p.names {
		prof, err := profile.Load(p.profiles, name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, prof)
	}
	return profiles, nil
}

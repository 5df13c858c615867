package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/provision"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/sitecommon"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var errPlatformUnavailable = errors.New("platform database unavailable")

var (
	createName       string
	createTemplate   string
	createOwnerID    string
	createOwnerEmail string
	createOwnerName  string
)

// createCmd provisions a new tenant site.
var createCmd = &cobra.Command{
	Use:   "create TENANT_ID",
	Short: "Provision a new tenant site",
	Long: `Provision a new tenant site: registers the routing record, creates (or
clones) the tenant database and seeds it.

Example:
  sitectl create acme-42 --name "Acme Inc" --owner-id user_9 --owner-email ceo@acme.test
  sitectl create acme-42 --template acme-template --owner-id user_9`,
	Args: cobra.ExactArgs(1),
	RunE: createSite,
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Site display name")
	createCmd.Flags().StringVar(&createTemplate, "template", "", "Template tenant id to clone from")
	createCmd.Flags().StringVar(&createOwnerID, "owner-id", "", "Owning user id")
	createCmd.Flags().StringVar(&createOwnerEmail, "owner-email", "", "Owning user email")
	createCmd.Flags().StringVar(&createOwnerName, "owner-name", "", "Owning user display name")
	createCmd.MarkFlagRequired("owner-id")
}

func createSite(cmd *cobra.Command, args []string) error {
	ctx, platform, err := setup()
	if err != nil {
		return err
	}
	defer platform.Close(ctx)

	tenantID := types.TenantId(args[0])
	req := provision.Request{
		TenantID:   tenantID,
		Name:       createName,
		TemplateID: types.TenantId(createTemplate),
		Owner: sitecommon.UserIdentity{
			ID:    types.UserId(createOwnerID),
			Email: createOwnerEmail,
			Name:  createOwnerName,
		},
	}

	dispatcher := provision.NewDispatcher(1)
	site, aerr := newProvisioner().CreateSite(ctx, req, dispatcher)
	if aerr != nil {
		dispatcher.Shutdown()
		return aerr
	}
	fmt.Printf("site %s registered at %s, provisioning...\n", site.TenantID, site.Domain)

	// the CLI waits for the background task instead of firing and forgetting
	dispatcher.Shutdown()

	final, aerr := platform.GetSite(ctx, tenantID)
	if aerr != nil {
		return aerr
	}
	fmt.Printf("site %s status: %s (db %s)\n", final.TenantID, final.Status, final.DBName)
	if final.Status == types.SiteStatusError {
		return fmt.Errorf("provisioning failed for %s", tenantID)
	}
	return nil
}

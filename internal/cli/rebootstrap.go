package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// rebootstrapCmd re-runs the seeding pipeline for an existing tenant.
var rebootstrapCmd = &cobra.Command{
	Use:   "rebootstrap TENANT_ID",
	Short: "Re-run the seed pipeline for a tenant",
	Long: `Re-run the seed pipeline against a tenant's existing database using the
connection facts recorded in the routing registry. Seeding upserts by key, so
existing content is preserved and missing baseline records are restored.`,
	Args: cobra.ExactArgs(1),
	RunE: rebootstrapSite,
}

func rebootstrapSite(cmd *cobra.Command, args []string) error {
	ctx, platform, err := setup()
	if err != nil {
		return err
	}
	defer platform.Close(ctx)

	tenantID := types.TenantId(args[0])
	site, aerr := platform.GetSite(ctx, tenantID)
	if aerr != nil {
		return aerr
	}

	if aerr := newProvisioner().Rebootstrap(ctx, tenantID, site.Descriptor()); aerr != nil {
		return aerr
	}
	if aerr := platform.SetSiteBootstrapped(ctx, tenantID); aerr != nil {
		return aerr
	}
	fmt.Printf("site %s re-bootstrapped (db %s)\n", tenantID, site.DBName)
	return nil
}

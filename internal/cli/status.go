package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// statusCmd prints one tenant's routing record.
var statusCmd = &cobra.Command{
	Use:   "status TENANT_ID",
	Short: "Show a tenant's routing record",
	Args:  cobra.ExactArgs(1),
	RunE:  siteStatus,
}

func siteStatus(cmd *cobra.Command, args []string) error {
	ctx, platform, err := setup()
	if err != nil {
		return err
	}
	defer platform.Close(ctx)

	site, aerr := platform.GetSite(ctx, types.TenantId(args[0]))
	if aerr != nil {
		return aerr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "tenant:\t%s\n", site.TenantID)
	fmt.Fprintf(w, "name:\t%s\n", site.Name)
	fmt.Fprintf(w, "domain:\t%s\n", site.Domain)
	fmt.Fprintf(w, "status:\t%s\n", site.Status)
	fmt.Fprintf(w, "active:\t%t\n", site.IsActive)
	fmt.Fprintf(w, "bootstrapped:\t%t\n", site.IsBootstrapped)
	fmt.Fprintf(w, "database:\t%s@%s:%d/%s\n", site.DBUser, site.DBHost, site.DBPort, site.DBName)
	fmt.Fprintf(w, "owner:\t%s <%s>\n", site.OwnerID, site.OwnerEmail)
	fmt.Fprintf(w, "created:\t%s\n", site.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "updated:\t%s\n", site.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return w.Flush()
}

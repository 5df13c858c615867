package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var teardownYes bool

// teardownCmd drops the tenant database and removes the routing record.
var teardownCmd = &cobra.Command{
	Use:   "teardown TENANT_ID",
	Short: "Drop a tenant database and remove its routing record",
	Args:  cobra.ExactArgs(1),
	RunE:  teardownSite,
}

func init() {
	teardownCmd.Flags().BoolVarP(&teardownYes, "yes", "y", false, "Skip the confirmation prompt")
}

func teardownSite(cmd *cobra.Command, args []string) error {
	tenantID := types.TenantId(args[0])

	if !teardownYes {
		fmt.Printf("This permanently drops the database for %s. Type the tenant id to confirm: ", tenantID)
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(line) != tenantID.String() {
			return fmt.Errorf("confirmation mismatch, aborting")
		}
	}

	ctx, platform, err := setup()
	if err != nil {
		return err
	}
	defer platform.Close(ctx)

	if aerr := newProvisioner().Teardown(ctx, tenantID); aerr != nil {
		return aerr
	}
	fmt.Printf("site %s torn down\n", tenantID)
	return nil
}

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd prints all routing records.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenant sites",
	Args:  cobra.NoArgs,
	RunE:  listSites,
}

func listSites(cmd *cobra.Command, args []string) error {
	ctx, platform, err := setup()
	if err != nil {
		return err
	}
	defer platform.Close(ctx)

	sites, aerr := platform.ListSites(ctx)
	if aerr != nil {
		return aerr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tDOMAIN\tSTATUS\tACTIVE\tDB")
	for _, s := range sites {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.TenantID, s.Domain, s.Status, s.IsActive, s.DBName)
	}
	return w.Flush()
}

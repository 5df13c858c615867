// Package cli implements the sitectl administrative command line: provision,
// re-bootstrap, tear down and inspect tenants directly against the platform
// database.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates a new root command for the CLI
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitectl",
		Short: "sitectl manages tenant sites on the platform",
		Long: `sitectl is the administrative command line for the site provisioning
service. It operates directly on the platform database: provisioning new
tenant sites, re-running the seed pipeline, inspecting routing records and
tearing tenants down.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the sitesrv config file")
	addCommands(cmd)
	return cmd
}

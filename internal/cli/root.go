package cli

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

func init() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" {
			version = strings.TrimPrefix(info.Main.Version, "v")
		}
	}
}

// NewRootCmd creates the root cobra command for the apprenticelog CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "apprenticelog",
		Short: "Comment context service for training reports",
		Long: "apprenticelog keeps the training start date, training year and team of each apprentice.\n\n" +
			"Client commands talk to " + envURL + " (default " + defaultURL + "),\n" +
			"authenticating with " + envUser + " and " + envPassword + " when set.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if !showVersion {
				return cmd.Help()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "apprenticelog %s\n", version)
			return nil
		},
	}

	root.Flags().BoolP("version", "v", false, "show version information")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "client", Title: "Client Commands:"},
		&cobra.Group{ID: "local", Title: "Local Commands:"},
	)

	serveCmd := newServeCmd()
	serveCmd.GroupID = "server"
	root.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{
		newGetCmd(),
		newListCmd(),
		newPutCmd(),
		newDeleteCmd(),
		newResolveCmd(),
	} {
		cmd.GroupID = "client"
		root.AddCommand(cmd)
	}

	deriveCmd := newDeriveYearCmd()
	deriveCmd.GroupID = "local"
	root.AddCommand(deriveCmd)

	return root
}

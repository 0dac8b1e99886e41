// Command btls exercises TLS layering on top of TCP streams.
package main

//
// Main
//

import (
	"os"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/log/handlers/cli"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("btls failed")
		os.Exit(1)
	}
}

// newRootCommand returns the root command.
func newRootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "btls",
		Short:         "Layers TLS on top of TCP streams and removes it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logmap := map[bool]log.Level{
				true:  log.DebugLevel,
				false: log.InfoLevel,
			}
			log.Log = &log.Logger{Level: logmap[verbose], Handler: cli.Default}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Toggle debug logging")
	root.AddCommand(connectSubcommand())
	root.AddCommand(serveSubcommand())
	root.AddCommand(decodeSubcommand())
	return root
}

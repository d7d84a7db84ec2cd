// Package main is the homekeeper command line client: it manages the
// identity, registers it with a log server and reads or edits the synced
// preferences, either one command at a time or from an interactive shell.
package main

import (
	"cmp"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atinyakov/HomeKeeper/internal/config"
)

var (
	version   string
	buildDate string
)

func main() {
	a := &app{out: os.Stdout, in: os.Stdin}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree bound to a. The shell builds a fresh
// tree for every line it reads.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "homekeeper",
		Short:         "Synced HomeKeeper preferences",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)
	root.SetIn(a.in)
	root.PersistentFlags().StringVar(&a.cfgPath, "config", cmp.Or(a.cfgPath, config.DefaultClientPath()), "client config file")
	root.PersistentFlags().StringVar(&a.watch, "watch", a.watch, "open the preferences of this public id read-only, without the private key")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "HomeKeeper client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
			},
		},
		newKeygenCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newShowCmd(a),
		newSetCmd(a),
		newViewModeCmd(a),
		newTabCmd(a),
		newListCmd(a),
		newRelayCmd(a),
		newStorageCmd(a),
		newSyncCmd(a),
		newSelectCmd(a),
		newSelectedCmd(a),
		newShellCmd(a),
	)
	return root
}

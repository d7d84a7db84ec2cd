package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/client/prefs"
	"github.com/atinyakov/HomeKeeper/internal/client/remote"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// syncWait bounds how long a command waits for a sync pass.
func (a *app) syncWait(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.opts.FetchTimeout
	if timeout <= 0 {
		timeout = prefs.DefaultFetchTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// mutate applies e after the first sync pass, so that a fresh device adopts
// the remote copy before it is edited.
func (a *app) mutate(cmd *cobra.Command, e edit) error {
	if a.watch != "" {
		return errors.New("a --watch session is read-only")
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := a.syncWait(cmd.Context())
	defer cancel()
	a.awaitSync(ctx, store)
	return store.Mutate(func(p models.PreferenceSnapshot) models.PreferenceSnapshot {
		e(&p)
		return p
	})
}

func newKeygenCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the identity key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.opts.KeyPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to replace it", a.opts.KeyPath)
			}
			kp, err := encryptor.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(a.opts.KeyPath), 0700); err != nil {
				return err
			}
			if err := kp.Save(a.opts.KeyPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), kp.PublicID())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key pair")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the identity public id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.PublicID)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the identity with the log server and store its client certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.opts.ServerURL == "" {
				return errors.New("server_url is not configured")
			}
			id, err := a.identity()
			if err != nil {
				return err
			}
			if err := remote.Register(cmd.Context(), a.opts.ServerURL, id.PublicID, a.opts.CAPath, a.opts.DataDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", id.PublicID)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := a.syncWait(cmd.Context())
			defer cancel()
			a.awaitSync(ctx, store)

			b, err := json.MarshalIndent(store.Read(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			fmt.Fprintf(cmd.OutOrStdout(), "view: %s  sync: %s\n", store.Selected(), store.SyncState())
			return nil
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <theme|currency|distance|temperature> <value>",
		Short: "Change a scalar preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setScalar(args[0], args[1])
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
}

func newViewModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view-mode <tab> <cards|list|table>",
		Short: "Change how a tab is displayed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setViewMode(args[0], args[1])
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
}

func newTabCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "tab <enable|disable> <tab>",
		Short:     "Enable or disable a feature tab",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"enable", "disable"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "enable" && args[0] != "disable" {
				return fmt.Errorf("%w: tab enable|disable <tab>", errUsage)
			}
			e, err := toggleTab(args[1], args[0] == "enable")
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <add|remove|hide|unhide> <list> <label>",
		Short: "Edit a custom category list or hide a default entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := listOp(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
}

func newRelayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relay <add|remove> <url>",
		Short: "Edit the private relay list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := relayOp(args[0], args[1])
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
}

func newStorageCmd(a *app) *cobra.Command {
	var trusted bool
	cmd := &cobra.Command{
		Use:   "storage <add|remove|enable|disable> <url>",
		Short: "Edit the storage server list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := storageOp(args[0], args[1], trusted)
			if err != nil {
				return err
			}
			return a.mutate(cmd, e)
		},
	}
	cmd.Flags().BoolVar(&trusted, "trusted", false, "mark the server as trusted")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the newest remote snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := a.syncWait(cmd.Context())
			defer cancel()
			if err := store.Resync(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync: %s\n", store.SyncState())
			return nil
		},
	}
}

func newSelectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <view>",
		Short: "Switch the current view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if !store.Select(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "too fast, selection ignored")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "view: %s\n", store.Selected())
			return nil
		},
	}
}

func newSelectedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selected",
		Short: "Print the current view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Selected())
			return nil
		},
	}
}

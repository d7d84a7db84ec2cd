package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/atinyakov/HomeKeeper/internal/client/prefs"
)

const shellHelp = `Commands: show, set, view-mode, tab, list, relay, storage, sync, select, selected, whoami, help, exit
Labels with spaces can be quoted: list add rooms "Wine Cellar"`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps the store open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.store != nil {
				return errors.New("already in a shell")
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			return a.repl(store)
		},
	}
}

// repl reads commands until exit or end of input. Sync state changes are
// reported as they happen.
func (a *app) repl(store *prefs.Store) error {
	out := &lockedWriter{w: a.out}
	a.out = out

	last := store.SyncState()
	unsubscribe := store.Subscribe(func(e prefs.Event) {
		out.mu.Lock()
		defer out.mu.Unlock()
		if e.SyncState != last {
			last = e.SyncState
			fmt.Fprintf(out.w, "\n[sync] %s\n", e.SyncState)
		}
	})
	defer unsubscribe()

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, "homekeeper> ")
		if !scanner.Scan() {
			break
		}
		args, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintln(a.out, err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(a.out, shellHelp)
			continue
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye")
			return nil
		case "shell", "keygen", "register":
			fmt.Fprintf(a.out, "%s is not available in the shell\n", args[0])
			continue
		}

		cmd := newRootCmd(a)
		cmd.SetArgs(args)
		// errors are already printed by cobra
		_ = cmd.Execute()
	}
	return scanner.Err()
}

// lockedWriter serializes writes from the prompt loop and store listeners.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// splitArgs splits line into arguments with shell quoting rules, without
// expanding variables or backticks.
func splitArgs(line string) ([]string, error) {
	args, err := shellwords.NewParser().Parse(line)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q: %w", line, err)
	}
	return args, nil
}

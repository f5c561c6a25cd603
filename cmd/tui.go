// ABOUTME: tui command launching the interactive interface
// ABOUTME: Refuses to start without a terminal on stdout

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/collabfs/collabfs-cli/internal/tui"
	"github.com/collabfs/collabfs-cli/internal/tui/recentemails"
)

var errNoTerminal = errors.New("the interactive interface needs a terminal; use the subcommands instead")

// isTerminal reports whether stdout is a terminal; replaced in tests
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive interface",
	Run:   runWithSignals(runTUI),
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ context.Context, w io.Writer) int {
	if !isTerminal() {
		return fail(w, errNoTerminal)
	}
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	err = tui.Run(e.cfg, tui.Deps{
		Flow:   e.flow,
		Groups: e.client,
		Limit:  e.cfg.StorageLimitBytes,
		Recent: recentemails.New(e.cfg.ConfigDir),
	})
	if err != nil {
		return fail(w, err)
	}
	return exitOK
}

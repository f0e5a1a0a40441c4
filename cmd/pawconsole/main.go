// Command pawconsole runs Lua console scripts in fyne windows, or in the
// current terminal with --headless.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/consoleapp"
	"github.com/phroun/pawconsole/pkg/consolefyne"
	"github.com/phroun/pawconsole/pkg/consoleterm"
)

func main() {
	os.Exit(submain())
}

func submain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pawconsole: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var headless bool
	cmd := consoleapp.NewCommand("pawconsole", "Lua scripting console",
		func(*cobra.Command, *config.Config) (consoleapp.Frontend, error) {
			if headless {
				return consoleterm.New(), nil
			}
			return consolefyne.New(), nil
		})
	cmd.Flags().BoolVar(&headless, "headless", false, "run in the current terminal instead of a window")
	return cmd
}

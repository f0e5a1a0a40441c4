// Command pawconsole-gtk runs Lua console scripts in GTK 3 windows.
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
	"github.com/phroun/pawconsole/pkg/consolegtk"
)

func main() {
	os.Exit(submain())
}

func submain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := consoleapp.NewCommand("pawconsole-gtk", "Lua scripting console (GTK)",
		func(*cobra.Command, *config.Config) (consoleapp.Frontend, error) {
			return consolegtk.New(), nil
		})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pawconsole-gtk: %v\n", err)
		return 1
	}
	return 0
}

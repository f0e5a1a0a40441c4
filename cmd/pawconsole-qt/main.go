// Command pawconsole-qt runs Lua console scripts in Qt windows.
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
	"github.com/phroun/pawconsole/pkg/consoleqt"
)

func main() {
	os.Exit(submain())
}

func submain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := consoleapp.NewCommand("pawconsole-qt", "Lua scripting console (Qt)",
		func(*cobra.Command, *config.Config) (consoleapp.Frontend, error) {
			return consoleqt.New(), nil
		})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pawconsole-qt: %v\n", err)
		return 1
	}
	return 0
}

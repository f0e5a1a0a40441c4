package consoleapp

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phroun/pawconsole/pkg/config"
)

// FrontendFunc picks the front-end for a run once flags are parsed.
type FrontendFunc func(cmd *cobra.Command, cfg *config.Config) (Frontend, error)

// NewCommand builds the root command of a console binary. Every config key
// has a flag of the same name with dashes, e.g. --font-size.
func NewCommand(use, short string, frontend FrontendFunc) *cobra.Command {
	var (
		cfgPath string
		title   string
	)
	cmd := &cobra.Command{
		Use:           use + " [script.lua]",
		Short:         short,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.BindFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			fe, err := frontend(cmd, cfg)
			if err != nil {
				return err
			}
			p := Params{Config: cfg, Frontend: fe, Title: title}
			if len(args) == 1 {
				p.Script = args[0]
			}
			app, err := New(p)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return app.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "config file (default ~/.pawconsole/config.yaml)")
	f.StringVar(&title, "title", DefaultTitle, "main window title")
	f.Bool("debug", false, "enable debug logging")
	f.String("log-categories", "", "comma separated debug categories, or \"all\"")
	f.String("font-family", config.GetDefaultFont(), "console font family list")
	f.Int("font-size", config.DefaultFontSize, "console font size")
	f.String("theme", string(config.ThemeAuto), "auto, dark or light")
	f.Int("update-refresh-rate", config.DefaultRefreshRate, "appends between forced renders")
	f.Uint64("maximum-block-count", 0, "maximum lines kept per console, 0 for unlimited")
	f.String("line-wrap", "WidgetWidth", "NoWrap or WidgetWidth")
	f.Int("history-limit", config.DefaultHistoryLimit, "input history entries kept")
	f.String("history-file", "", "where input history is saved")
	f.Duration("flush-delay", config.DefaultFlushDelay, "how long a partial output line waits")
	f.Int("window-columns", config.DefaultWindowColumns, "initial window width in characters")
	f.Int("window-rows", config.DefaultWindowRows, "initial window height in characters")
	return cmd
}

package cli

import (
	"context"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/ytget/vod-downloader/internal/config"
	"github.com/ytget/vod-downloader/internal/ui"
)

// AppID identifies the desktop application to Fyne
const AppID = "com.ytget.vod-downloader"

func guiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   CmdGUI,
		Short: "Open the desktop window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(g)
		},
	}
}

// runGUI uses the Fyne preference store, still layered under the
// environment overrides
func runGUI(g *globals) error {
	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(ui.NewCompactTheme())

	env, err := config.LoadEnv(g.dotenvFile)
	if err != nil {
		return err
	}
	settings := config.NewSettings(config.WithOverrides(fyneApp.Preferences(), env.Values()))

	rt, err := newStack(context.Background(), settings)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	presenter := ui.NewPresenter(rt.svc.Capabilities().Pause, rt.svc.Summary)
	rt.reporter.Attach(presenter)

	window := fyneApp.NewWindow("VOD Downloader " + g.version)
	ui.NewRootUI(window, rt.svc, settings, presenter)
	window.ShowAndRun()
	return nil
}

// Package cli wires configuration, engines, the controller and its
// presentation surfaces into cobra commands.
package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ytget/vod-downloader/internal/config"
)

// Command names
const (
	CmdGet     = "get"
	CmdServe   = "serve"
	CmdGUI     = "gui"
	CmdVersion = "version"
)

// globals holds flags shared by every command
type globals struct {
	configPath string
	dotenvFile string
	logLevel   string
	version    string

	store    *config.FileStore
	prefs    *config.Overrides
	settings *config.Settings
}

// Execute runs the command line. With no arguments, defaultCmd runs instead
// of printing help.
func Execute(version, defaultCmd string) {
	g := &globals{version: version}
	root := newRootCmd(g)

	args := os.Args[1:]
	if len(args) == 0 && defaultCmd != "" {
		args = []string{defaultCmd}
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		log.Fatal().Msgf("failed to execute command, err: %v", err.Error())
	}
}

func newRootCmd(g *globals) *cobra.Command {
	var command = &cobra.Command{
		Use:           "vod-downloader",
		Short:         "Queue, download and control video-on-demand transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	command.PersistentFlags().StringVar(&g.configPath, "config", "", "TOML settings file (default ~/.vod-downloader/config.toml)")
	command.PersistentFlags().StringVar(&g.dotenvFile, "env-file", config.DefaultDotEnvFile, "dotenv file loaded before VOD_* variables")
	command.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	command.AddCommand(getCmd(g))
	command.AddCommand(serveCmd(g))
	command.AddCommand(guiCmd(g))
	command.AddCommand(versionCmd(g))

	return command
}

// load builds the settings stack: file store, then environment, then flags
func (g *globals) load() error {
	path := g.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	store, err := config.LoadFileStore(path)
	if err != nil {
		return err
	}
	env, err := config.LoadEnv(g.dotenvFile)
	if err != nil {
		return err
	}

	g.store = store
	g.prefs = config.WithOverrides(store, env.Values())
	if g.logLevel != "" {
		g.prefs.Set(config.KeyLogLevel, g.logLevel)
	}
	g.settings = config.NewSettings(g.prefs)

	return setupLogging(g.settings.GetLogLevel())
}

// override applies a command flag when the user set it
func (g *globals) override(cmd *cobra.Command, flag, key string, value any) {
	if cmd.Flags().Changed(flag) {
		g.prefs.Set(key, value)
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	return nil
}

func versionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   CmdVersion,
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vod-downloader %s\n", g.version)
		},
	}
}

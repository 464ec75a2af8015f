package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/vod-downloader/internal/api"
	"github.com/ytget/vod-downloader/internal/config"
)

func serveCmd(g *globals) *cobra.Command {
	var listen string

	var command = &cobra.Command{
		Use:   CmdServe,
		Short: "Run the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			g.override(cmd, "listen", config.KeyListenAddr, listen)
			return runServe(cmd.Context(), g.settings)
		},
	}

	command.Flags().StringVarP(&listen, "listen", "l", config.DefaultListenAddr, "listen address")
	return command
}

func runServe(parent context.Context, s *config.Settings) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newStack(ctx, s)
	if err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return api.NewServer(rt.svc).Run(gctx, s.GetListenAddr())
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("stopping all tasks")
		rt.shutdown()
		return nil
	})

	return group.Wait()
}

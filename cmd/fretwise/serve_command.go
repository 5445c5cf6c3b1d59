package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretwise/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string
	var staticFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracking API over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			log.WithField("config", ctx.configPath).Debug("configuration loaded")

			svc, release, err := ctx.openService(log)
			if err != nil {
				return err
			}
			defer release()

			staticDir := strings.TrimSpace(staticFlag)
			if staticDir == "" {
				staticDir = findWebDir()
			}
			if staticDir != "" {
				log.WithField("dir", staticDir).Info("serving static files")
			}

			addr := strings.TrimSpace(addrFlag)
			if addr == "" {
				addr = cfg.Server.Addr
			}

			srv := server.New(server.Config{
				StaticDir:     staticDir,
				Tracking:      svc,
				Chords:        svc.Chords(),
				Logger:        log,
				FrameTimeout:  cfg.FrameTimeout(),
				MaxFrameBytes: cfg.Server.MaxFrameBytes,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(runCtx, addr); err != nil {
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&staticFlag, "static", "", "Directory of static files served at /")
	return cmd
}

// findWebDir looks for a web directory next to the working directory, then
// under ~/.fretwise. It returns "" when none exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWeb := filepath.Join(home, ".fretwise", "web")
	if info, err := os.Stat(homeWeb); err == nil && info.IsDir() {
		return homeWeb
	}
	return ""
}


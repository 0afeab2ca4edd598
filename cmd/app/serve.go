package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/garagebooking/api"
	"github.com/Domenick1991/garagebooking/internal/bootstrap"
	"github.com/Domenick1991/garagebooking/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

func newServeCmd(load loader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.NewApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if migrate {
				if err := repository.Migrate(ctx, app.Pool); err != nil {
					return err
				}
			}

			hashKey := []byte(cfg.Session.HashKey)
			if len(hashKey) == 0 {
				log.Warn("session.hash_key not set; visitor cookies will not survive a restart")
				hashKey = securecookie.GenerateRandomKey(32)
			}

			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(api.NewBookingHandler(app.Bookings), api.NewSessions(cfg.Session, hashKey), log)
			return bootstrap.Run(ctx, cfg.HTTP, router, log)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

// contextOrBackground keeps commands usable when cobra runs without a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

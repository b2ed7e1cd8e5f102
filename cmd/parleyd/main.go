package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"parley/internal/router"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parleyd",
		Short: "Encrypted chat relay",
		Long: "parleyd relays encrypted frames between room members over " +
			"websockets. Payloads are opaque to the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8080", "listen address")
	flags.Int("rate", 20, "per-connection inbound frames per second")
	flags.BoolP("verbose", "v", false, "debug logging")
	viper.BindPFlag("listen", flags.Lookup("listen"))
	viper.BindPFlag("rate", flags.Lookup("rate"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.SetEnvPrefix("parleyd")
	viper.AutomaticEnv()

	return cmd
}

func serve() error {
	if viper.GetBool("verbose") {
		jww.SetStdoutThreshold(jww.LevelDebug)
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
	}

	hub := router.NewHub()
	srv := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           router.NewServer(hub, viper.GetInt("rate")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		jww.INFO.Printf("[SRVR] listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		jww.INFO.Printf("[SRVR] %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

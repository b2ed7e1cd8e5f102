package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"parley/internal/app"
)

var wire *app.Wire

func Execute() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "End-to-end encrypted room chat",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("verbose") {
				jww.SetStdoutThreshold(jww.LevelDebug)
			} else {
				jww.SetStdoutThreshold(jww.LevelWarn)
			}

			home := viper.GetString("home")
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".parley")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			wire, err = app.NewWire(app.Config{
				Home:        home,
				ServerURL:   viper.GetString("server"),
				NotaryURL:   viper.GetString("notary"),
				HistoryPass: viper.GetString("history-pass"),
				NoHistory:   viper.GetBool("no-history"),
			})
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "state dir (default ~/.parley)")
	pf.String("server", "ws://127.0.0.1:8080/ws", "relay websocket URL")
	pf.String("notary", "", "attestation service base URL")
	pf.String("history-pass", "", "password for the encrypted history store")
	pf.Bool("no-history", false, "disable local message history")
	pf.BoolP("verbose", "v", false, "debug logging")
	viper.BindPFlags(pf)
	viper.SetEnvPrefix("parley")
	viper.AutomaticEnv()

	root.AddCommand(chatCmd(), fingerprintCmd())
	return root.Execute()
}

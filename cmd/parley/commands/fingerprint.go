package commands

import (
	"fmt"
	"os"

	qrterminal "github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"parley/internal/crypto"
)

// fingerprint [key]: with no argument, print this session's fingerprint;
// with a base64 public key, print that key's fingerprint for comparison.
func fingerprintCmd() *cobra.Command {
	var showQR bool

	cmd := &cobra.Command{
		Use:   "fingerprint [base64-key]",
		Short: "Print a key fingerprint for out-of-band comparison",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				fp, err := crypto.FingerprintKey(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Fingerprint: %s\n", fp)
				return nil
			}

			fp, err := wire.Keys.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)

			if showQR {
				pub, err := wire.Keys.ExportPublicKey()
				if err != nil {
					return err
				}
				qrterminal.GenerateWithConfig(pub, qrterminal.Config{
					Level:     qrterminal.M,
					Writer:    os.Stdout,
					BlackChar: qrterminal.BLACK,
					WhiteChar: qrterminal.WHITE,
					QuietZone: 1,
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showQR, "qr", false, "also render the public key as a QR code")
	return cmd
}

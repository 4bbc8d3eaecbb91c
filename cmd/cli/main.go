package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/rampart-fl/rampart/cli"
	"github.com/rampart-fl/rampart/pkg/sdk"
)

var (
	defCoordinatorURL  = "http://localhost:9090"
	defTLSVerification = false
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rampart-cli",
		Short: "Rampart CLI",
		Long:  `Rampart CLI is a command line interface for managing experiments and runs.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  defCoordinatorURL,
				TLSVerification: defTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetRampartSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&defCoordinatorURL,
		"coordinator-url",
		"c",
		defCoordinatorURL,
		"Coordinator URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&defTLSVerification,
		"tls-verification",
		"v",
		defTLSVerification,
		"TLS Verification",
	)

	rootCmd.AddCommand(cli.NewExperimentsCmd())
	rootCmd.AddCommand(cli.NewRunsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

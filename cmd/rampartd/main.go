package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/rampart-fl/rampart/rampartd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rampartd",
		Short: "Rampart Daemon",
		Long:  `Rampart Daemon manages the lifecycle of Rampart components.`,
	}

	rootCmd.AddCommand(rampartd.NewCoordinatorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

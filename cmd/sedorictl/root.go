package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sedorictl",
		Short:         "Resale triage tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newShippingCmd())
	rootCmd.AddCommand(newProfitCmd())
	rootCmd.AddCommand(newWeightCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newArchiveCmd())

	return rootCmd
}

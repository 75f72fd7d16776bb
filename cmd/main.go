package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "governance-scorer",
	Short: "A CLI for scoring DAO governance proposals",
	Long: `governance-scorer combines prediction, sentiment, participation, risk, treasury and
execution signals into a 0-100 score per proposal, ranks the batch and raises alerts.`,
}

func main() {
	rootCmd.AddCommand(newEvaluateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier is a checkpointed workflow graph engine",
	Long:  `Espalier runs agentic workflow graphs: typed nodes wired by edges, with reducer-merged state, retries, suspend/resume and pluggable checkpoint storage.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", "", "Checkpoint directory (defaults to the store's own default)")
	rootCmd.PersistentFlags().String("format", "json", "Checkpoint file format: json or pretty")
}

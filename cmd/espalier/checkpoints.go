package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/pretty"
	"github.com/aretw0/espalier/pkg/ports"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect and manage stored run checkpoints",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored run IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no checkpoints found")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var checkpointsShowCmd = &cobra.Command{
	Use:   "show <execution-id>",
	Short: "Print a stored checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		state, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load checkpoint %s: %w", args[0], err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

var checkpointsDeleteCmd = &cobra.Command{
	Use:   "delete <execution-id>",
	Short: "Remove a stored checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete checkpoint %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func storeFromFlags(cmd *cobra.Command) (ports.Checkpointer, error) {
	dir, _ := cmd.Flags().GetString("dir")
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case "json":
		return file.NewStore(dir), nil
	case "pretty":
		return pretty.NewStore(dir), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint format %q (want json or pretty)", format)
	}
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd, checkpointsShowCmd, checkpointsDeleteCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

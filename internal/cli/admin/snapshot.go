package admin

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/aqacs/internal/config"
	"github.com/cloo-solutions/aqacs/internal/domain"
)

func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show or change the active snapshot",
		Long:  "Read or overwrite the active snapshot marker file",
	}

	cmd.AddCommand(SnapshotShowCmd())
	cmd.AddCommand(SnapshotSetCmd())

	return cmd
}

func SnapshotShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active snapshot id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			resolver := newResolver(cfg)
			id := resolver.ActiveID()

			outputFormat, _ := cmd.Flags().GetString("output")
			if outputFormat == "json" {
				data := map[string]interface{}{
					"snapshot_id": id,
					"marker":      resolver.MarkerPath(),
					"collection":  id.Collection(cfg.CollectionPrefix),
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			if id == domain.PlaceholderSnapshotID {
				fmt.Fprintf(cmd.ErrOrStderr(), "no snapshot configured: write %s or set SNAPSHOT_ID\n", resolver.MarkerPath())
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func SnapshotSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <snapshot-id>",
		Short: "Make a snapshot active",
		Long:  "Atomically rewrite the marker file so new requests use the given snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			resolver := newResolver(cfg)
			id := domain.SnapshotID(args[0])
			if err := resolver.SetActive(id); err != nil {
				return fmt.Errorf("failed to set active snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active snapshot set to %s (%s)\n", id, resolver.MarkerPath())
			return nil
		},
	}
}

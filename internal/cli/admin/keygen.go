package admin

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/aqacs/internal/service"
)

func KeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key",
		Long:  "Generate a random API key. Add it to API_KEYS to enable it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := service.GenerateAPIKey()
			if err != nil {
				return fmt.Errorf("failed to generate API key: %w", err)
			}

			outputFormat, _ := cmd.Flags().GetString("output")
			if outputFormat == "json" {
				data := map[string]interface{}{
					"token":     token,
					"client_id": service.ClientID(token),
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n", token)
			fmt.Fprintf(cmd.OutOrStdout(), "Client ID: %s\n", service.ClientID(token))
			fmt.Fprintln(cmd.OutOrStdout(), "\nAppend the token to API_KEYS (comma separated) and restart the server.")
			return nil
		},
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
		Long:  "Store, remove and inspect the API key the aqacs CLI sends",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Long:  "Store API key and URL in global config (~/.config/aqacs/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API key: ")
				input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && input == "" {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				apiKey = strings.TrimSpace(input)
			}
			return runAuthLogin(cmd.OutOrStdout(), apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (aq_...)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API key would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			outputJSON, _ := cmd.Flags().GetBool("output")
			source, apiKey, apiURL := GetCredentialSource(flagKey, flagURL)
			return writeAuthStatus(cmd.OutOrStdout(), source, apiKey, apiURL, outputJSON)
		},
	}
}

func runAuthLogin(out io.Writer, apiKey, apiURL string) error {
	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: aq_ + 64 hex characters)")
	}

	config := &GlobalConfig{
		APIKey: apiKey,
		APIURL: apiURL,
	}

	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Credentials saved")
	return nil
}

func writeAuthStatus(out io.Writer, source CredentialSource, apiKey, apiURL string, outputJSON bool) error {
	if outputJSON {
		status := map[string]interface{}{
			"configured": source != SourceNone,
			"source":     string(source),
		}
		if source != SourceNone {
			status["api_key"] = maskAPIKey(apiKey)
			status["api_url"] = apiURL
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if source == SourceNone {
		fmt.Fprintln(out, "No API key configured (requests are sent anonymously)")
		fmt.Fprintf(out, "Run 'aqacs auth login' or set %s\n", envAPIKey)
		return nil
	}

	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(apiKey))
	fmt.Fprintf(out, "API URL: %s\n", apiURL)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}


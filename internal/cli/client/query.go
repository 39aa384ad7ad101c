package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/aqacs/internal/api/handlers"
	"github.com/cloo-solutions/aqacs/internal/domain"
)

// TariffCmd creates the tariff command.
func TariffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tariff <hts-code>",
		Short: "Look up a tariff line by HTS code",
		Long:  "Looks up one HTS code (dotted or plain digits) in the active snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), "/v1/tariff", handlers.TariffRequest{Code: args[0]})
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			var out handlers.TariffResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to parse lookup result: %w", err)
			}
			return render(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s (chapter %s, section %s)\n", out.Code, intOrNA(out.Chapter), stringOrNA(out.Section))
				writeRates(w, out.Rates)
				fmt.Fprintf(w, "Citation: %s\n", out.Citation)
				fmt.Fprintf(w, "\n%s\n", out.Disclaimer)
			})
		},
	}
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search article descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/v1/search", queryValues(cmd, strings.Join(args, " "), limit))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var out handlers.TariffSearchResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to parse search results: %w", err)
			}
			return render(cmd, out, func(w io.Writer) {
				if len(out.Items) == 0 {
					fmt.Fprintln(w, "No results found.")
					return
				}
				fmt.Fprintf(w, "Found %d results in %s:\n\n", len(out.Items), out.SnapshotID)
				for i, item := range out.Items {
					fmt.Fprintf(w, "%d. %s  %s\n", i+1, item.Code, truncate(item.Article, 100))
					writeRates(w, item.Rates)
					if i < len(out.Items)-1 {
						fmt.Fprintln(w, strings.Repeat("-", 40))
					}
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")

	return cmd
}

// SemanticCmd creates the semantic command.
func SemanticCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Vector search over indexed tariff rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/v1/semantic", queryValues(cmd, strings.Join(args, " "), limit))
			if err != nil {
				return fmt.Errorf("semantic search failed: %w", err)
			}

			var out handlers.SemanticResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to parse semantic results: %w", err)
			}
			return render(cmd, out, func(w io.Writer) {
				if len(out.Hits) == 0 {
					fmt.Fprintln(w, "No results found.")
					return
				}
				for i, hit := range out.Hits {
					fmt.Fprintf(w, "%d. %s (%.3f)  %s\n", i+1, stringOr(hit.Code, "n/a"), hit.Score, truncate(hit.Description, 100))
					fmt.Fprintf(w, "   Source: %s\n", hit.SourceCSV)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 8, "Maximum number of hits (1-12)")

	return cmd
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the tariff schedule",
		Long:  "Retrieves the closest tariff rows and extracts an answer span from them.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			req := handlers.QARequest{Question: strings.Join(args, " ")}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			resp, err := api.Post(cmd.Context(), "/v1/qa", req)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			var out handlers.QAResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to parse answer: %w", err)
			}
			return render(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Answer: %s\n", out.Answer)
				fmt.Fprintf(w, "Confidence: %.2f\n", out.Confidence)
				if out.Excerpt != nil {
					fmt.Fprintf(w, "Excerpt: %s\n", *out.Excerpt)
				}
				if len(out.Sources) > 0 {
					fmt.Fprintln(w, "\nSources:")
					for _, src := range out.Sources {
						fmt.Fprintf(w, "  - %s row %s (%s)\n", src.SourceCSV, intOrNA(src.RowIndex), stringOr(src.Code, "n/a"))
					}
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 8, "Rows to retrieve (1-12)")

	return cmd
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/v1/health", nil)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			var out handlers.HealthResponse
			if err := json.Unmarshal(resp.Data, &out); err != nil {
				return fmt.Errorf("failed to parse health: %w", err)
			}
			return render(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s (%s) at %s\n", api.BaseURL(), out.Status, out.Env, out.Timestamp)
			})
		},
	}
}

// render prints v as JSON when --output is set, text otherwise.
func render(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	if outputJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	text(cmd.OutOrStdout())
	return nil
}

// queryValues sends limit only when the flag was given so the server
// applies its own default otherwise.
func queryValues(cmd *cobra.Command, q string, limit int) url.Values {
	v := url.Values{"q": {q}}
	if cmd.Flags().Changed("limit") {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func writeRates(w io.Writer, r domain.Rates) {
	fmt.Fprintf(w, "   General: %s | Special: %s | Column 2: %s\n", stringOr(r.General, "-"), stringOr(r.Special, "-"), stringOr(r.Column2, "-"))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func intOrNA(v *int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.Itoa(*v)
}

func stringOrNA(v *string) string {
	if v == nil {
		return "n/a"
	}
	return *v
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ContextRequest represents the context API request.
type ContextRequest struct {
	Query     string `json:"query"`
	MaxLength int    `json:"max_length,omitempty"`
}

// ContextResponse represents the context API response.
type ContextResponse struct {
	Context string         `json:"context"`
	Sources []SearchResult `json:"sources"`
}

// ContextCmd creates the context command.
func ContextCmd() *cobra.Command {
	var maxLength int

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble a context window for a query",
		Long:  "Retrieves matching chunks and assembles them into a bounded context window.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runContext(cmd, args[0], maxLength, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&maxLength, "max-length", "m", 0, "Maximum context length in bytes (0 = server default)")

	return cmd
}

func runContext(cmd *cobra.Command, query string, maxLength int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/context", ContextRequest{Query: query, MaxLength: maxLength})
	if err != nil {
		return fmt.Errorf("context request failed: %w", err)
	}

	var contextResp ContextResponse
	if err := json.Unmarshal(resp.Data, &contextResp); err != nil {
		return fmt.Errorf("failed to parse context response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(contextResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if contextResp.Context == "" {
		fmt.Println("No matching context found.")
		return nil
	}

	fmt.Println(contextResp.Context)
	fmt.Printf("\n(%d sources, %d bytes)\n", len(contextResp.Sources), len(contextResp.Context))

	return nil
}

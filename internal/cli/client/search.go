package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query  string            `json:"query"`
	Filter map[string]string `json:"filter,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge index",
		Long:  "Searches indexed chunks using semantic similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], filters, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&filters, "filter", "f", nil, "Metadata filter as key=value (repeatable)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, filters []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	filter, err := parseFilters(filters)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/search", SearchRequest{Query: query, Filter: filter})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		title := result.Title
		if title == "" {
			title = result.DocumentID
		}
		fmt.Printf("%d. %s (%.2f)\n", i+1, title, result.Score)

		snippet := result.Content
		if len(snippet) > 100 {
			snippet = snippet[:97] + "..."
		}
		fmt.Printf("   %s\n", snippet)
		fmt.Printf("   ID: %s\n", result.ID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", pair)
		}
		filter[key] = value
	}
	return filter, nil
}

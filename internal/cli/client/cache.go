package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse represents the cache stats API response.
type StatsResponse struct {
	TotalEntries    int     `json:"total_entries"`
	ActiveEntries   int     `json:"active_entries"`
	ExpiredEntries  int     `json:"expired_entries"`
	MeanAccessCount float64 `json:"mean_access_count"`
	ApproxSizeBytes int64   `json:"approx_size_bytes"`
}

// ClearResponse represents the cache clear API response.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// OptimizeResponse represents the cache optimize API response.
type OptimizeResponse struct {
	ExpiredRemoved int `json:"expired_removed"`
	Evicted        int `json:"evicted"`
}

// CacheCmd creates the cache command group.
func CacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the semantic cache",
	}

	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(cacheOptimizeCmd())

	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/v1/stats")
			if err != nil {
				return fmt.Errorf("stats request failed: %w", err)
			}

			var stats StatsResponse
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse stats response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(stats, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Total entries:     %d\n", stats.TotalEntries)
			fmt.Printf("Active entries:    %d\n", stats.ActiveEntries)
			fmt.Printf("Expired entries:   %d\n", stats.ExpiredEntries)
			fmt.Printf("Mean access count: %.2f\n", stats.MeanAccessCount)
			fmt.Printf("Approx size:       %d bytes\n", stats.ApproxSizeBytes)
			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/v1/cache/clear", nil)
			if err != nil {
				return fmt.Errorf("clear request failed: %w", err)
			}

			var cleared ClearResponse
			if err := json.Unmarshal(resp.Data, &cleared); err != nil {
				return fmt.Errorf("failed to parse clear response: %w", err)
			}

			fmt.Printf("Removed %d entries.\n", cleared.Removed)
			return nil
		},
	}
}

func cacheOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Sweep expired entries and compact the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/v1/cache/optimize", nil)
			if err != nil {
				return fmt.Errorf("optimize request failed: %w", err)
			}

			var result OptimizeResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse optimize response: %w", err)
			}

			fmt.Printf("Removed %d expired entries, evicted %d.\n", result.ExpiredRemoved, result.Evicted)
			return nil
		},
	}
}

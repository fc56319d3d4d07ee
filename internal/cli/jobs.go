package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [paper-id]",
	Short: "List active ingestion jobs or inspect one paper",
	Long: `List the ingestion jobs the server is currently tracking, or fetch the
authoritative status of one paper by id.

Examples:
  shodh jobs                # List active jobs
  shodh jobs 2401.12345     # Show status for one paper`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No active ingestion jobs")
		return nil
	}

	fmt.Printf("%-16s %-12s %-10s %-14s %s\n", "PAPER", "STATUS", "PROGRESS", "STEP", "TITLE")
	fmt.Println("--------------------------------------------------------------------------")

	for _, job := range jobs {
		fmt.Printf("%-16s %-12s %-10s %-14s %s\n",
			job.PaperID, job.Status, fmt.Sprintf("%d%%", job.Progress), job.Step, truncate(job.Title, 40))
	}

	return nil
}

func showJob(ctx context.Context, paperID string) error {
	result, err := apiClient.IngestionStatus(ctx, paperID)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Paper: %s\n", result.PaperID)
	fmt.Printf("  Status: %s\n", result.State)
	if result.Progress != nil {
		fmt.Printf("  Progress: %d%%\n", *result.Progress)
	}
	if result.Step != nil && *result.Step != "" {
		fmt.Printf("  Step: %s\n", *result.Step)
	}
	if result.ChunkCount != nil {
		fmt.Printf("  Chunks indexed: %d\n", *result.ChunkCount)
	}
	if result.Error != nil && *result.Error != "" {
		fmt.Printf("  Error: %s\n", *result.Error)
	}

	return nil
}

// truncate shortens s to at most n runes for table display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

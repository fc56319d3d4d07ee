package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shodh/internal/api"
	"shodh/internal/client"
)

var (
	papersLimit   int
	papersTitle   string
	papersURL     string
	papersAuthors string
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Browse, search, and manage papers",
}

var papersFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the paper feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := apiClient.Feed(context.Background(), papersLimit)
		if err != nil {
			return fmt.Errorf("fetch feed: %w", err)
		}
		printPapers(papers)
		return nil
	},
}

var papersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search papers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := apiClient.SearchPapers(context.Background(), args[0], papersLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		printPapers(papers)
		return nil
	},
}

var papersSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved papers",
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := apiClient.SavedPapers(context.Background())
		if err != nil {
			return fmt.Errorf("list saved: %w", err)
		}
		printPapers(papers)
		return nil
	},
}

var papersFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite papers",
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := apiClient.FavoritePapers(context.Background())
		if err != nil {
			return fmt.Errorf("list favorites: %w", err)
		}
		printPapers(papers)
		return nil
	},
}

var papersSaveCmd = &cobra.Command{
	Use:   "save <paper-id>",
	Short: "Save a paper and queue its ingestion",
	Long: `Save a paper to the library. Saving queues PDF ingestion on the server;
follow it with 'shodh watch' or 'shodh jobs'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := client.PaperAction{
			PaperID: args[0],
			Title:   papersTitle,
			URL:     papersURL,
			Authors: papersAuthors,
		}
		if err := apiClient.SavePaper(context.Background(), action); err != nil {
			return fmt.Errorf("save paper: %w", err)
		}
		fmt.Printf("Saved %s. Ingestion queued; run 'shodh watch' to follow it.\n", args[0])
		return nil
	},
}

var papersFavoriteCmd = &cobra.Command{
	Use:   "favorite <paper-id>",
	Short: "Toggle a paper's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := client.PaperAction{
			PaperID: args[0],
			Title:   papersTitle,
			URL:     papersURL,
			Authors: papersAuthors,
		}
		if err := apiClient.FavoritePaper(context.Background(), action); err != nil {
			return fmt.Errorf("favorite paper: %w", err)
		}
		fmt.Printf("Toggled favorite for %s\n", args[0])
		return nil
	},
}

func init() {
	papersFeedCmd.Flags().IntVarP(&papersLimit, "limit", "n", 20, "max results")
	papersSearchCmd.Flags().IntVarP(&papersLimit, "limit", "n", 20, "max results")

	for _, c := range []*cobra.Command{papersSaveCmd, papersFavoriteCmd} {
		c.Flags().StringVar(&papersTitle, "title", "", "paper title")
		c.Flags().StringVar(&papersURL, "url", "", "paper URL")
		c.Flags().StringVar(&papersAuthors, "authors", "", "paper authors")
	}

	papersCmd.AddCommand(papersFeedCmd)
	papersCmd.AddCommand(papersSearchCmd)
	papersCmd.AddCommand(papersSavedCmd)
	papersCmd.AddCommand(papersFavoritesCmd)
	papersCmd.AddCommand(papersSaveCmd)
	papersCmd.AddCommand(papersFavoriteCmd)
	rootCmd.AddCommand(papersCmd)
}

func printPapers(papers []api.Paper) {
	if len(papers) == 0 {
		fmt.Println("No papers found")
		return
	}

	for _, p := range papers {
		flags := ""
		if p.IsSaved {
			flags += " [saved]"
		}
		if p.IsFavorited {
			flags += " [fav]"
		}
		if p.IngestionStatus != "" {
			flags += fmt.Sprintf(" [%s]", p.IngestionStatus)
		}
		fmt.Printf("%s  %s%s\n", p.ID, truncate(p.Title, 70), flags)
		if p.Authors != "" {
			fmt.Printf("    %s\n", truncate(p.Authors, 76))
		}
	}
}

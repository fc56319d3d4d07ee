package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shodh/internal/api"
)

var (
	convPaperID   string
	convProjectID string
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List and show chat conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations for a paper or project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if convPaperID == "" && convProjectID == "" {
			return fmt.Errorf("either --paper or --project is required")
		}

		convs, err := apiClient.Conversations(context.Background(), convPaperID, api.ID(convProjectID))
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}

		if len(convs) == 0 {
			fmt.Println("No conversations found")
			return nil
		}

		fmt.Printf("%-6s %-44s %-10s %s\n", "ID", "TITLE", "MESSAGES", "CREATED")
		fmt.Println("---------------------------------------------------------------------------")
		for _, conv := range convs {
			fmt.Printf("%-6s %-44s %-10d %s\n", conv.ID, truncate(conv.Title, 44), conv.MessageCount, conv.CreatedAt)
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messages, err := apiClient.ConversationMessages(context.Background(), api.ID(args[0]))
		if err != nil {
			return fmt.Errorf("get messages: %w", err)
		}

		for _, msg := range messages {
			fmt.Printf("%s:\n%s\n", msg.Role, msg.Content)
			if len(msg.Citations) > 0 {
				fmt.Printf("(%d citations)\n", len(msg.Citations))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	conversationsListCmd.Flags().StringVarP(&convPaperID, "paper", "p", "", "paper id")
	conversationsListCmd.Flags().StringVar(&convProjectID, "project", "", "project id")

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	rootCmd.AddCommand(conversationsCmd)
}

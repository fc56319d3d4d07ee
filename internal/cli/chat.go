package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shodh/internal/api"
	"shodh/internal/chat"
)

var (
	chatPaperID   string
	chatProjectID string
	chatAgent     bool
	chatJob       bool
	chatResume    string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant about a paper or project",
	Long: `Chat with the LLM-backed assistant about an ingested paper, or across
all papers of a project.

With a message argument, sends it and prints the streamed answer. Without
one, opens an interactive session.

Examples:
  shodh chat --paper 2401.12345 "What is the main contribution?"
  shodh chat --project 3
  shodh chat --paper 2401.12345 --agent --job "Compare against prior work"
  shodh chat --paper 2401.12345 --resume 42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatPaperID, "paper", "p", "", "paper id to chat about")
	chatCmd.Flags().StringVar(&chatProjectID, "project", "", "project id for cross-paper chat")
	chatCmd.Flags().BoolVar(&chatAgent, "agent", false, "use multi-step agentic reasoning")
	chatCmd.Flags().BoolVar(&chatJob, "job", false, "run agent mode as a background job")
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "conversation id to resume")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatPaperID == "" && chatProjectID == "" {
		return fmt.Errorf("either --paper or --project is required")
	}
	if chatPaperID != "" && chatProjectID != "" {
		return fmt.Errorf("--paper and --project are mutually exclusive")
	}
	if chatJob {
		// Background jobs only exist for agent mode.
		chatAgent = true
	}

	ctx := context.Background()

	consumer := chat.NewConsumer(apiClient, chat.NewState(), appLogger)
	consumer.PaperID = chatPaperID
	consumer.ProjectID = api.ID(chatProjectID)
	consumer.HistoryLimit = cfg.HistoryLimit
	consumer.SetCollector(collector)
	if cfg.UseAgent {
		chatAgent = true
	}

	if chatResume != "" {
		if err := consumer.LoadConversation(ctx, api.ID(chatResume)); err != nil {
			return fmt.Errorf("resume conversation: %w", err)
		}
		printTranscriptTail(consumer.State(), 4)
	}

	if len(args) == 1 {
		return sendMessage(ctx, consumer, args[0])
	}
	return chatSession(ctx, consumer)
}

// sendMessage runs one send and prints the streamed answer plus citations.
func sendMessage(ctx context.Context, consumer *chat.Consumer, text string) error {
	opts := chat.SendOptions{
		UseAgent: chatAgent,
		UseJob:   chatJob,
		OnDelta: func(s string) {
			fmt.Print(s)
		},
	}

	err := consumer.Send(ctx, text, opts)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return fmt.Errorf("message is empty")
	case errors.Is(err, chat.ErrBusy):
		return fmt.Errorf("a message is already in flight")
	case err != nil:
		return fmt.Errorf("send: %w", err)
	}
	fmt.Println()

	printCitations(consumer.State())
	return nil
}

// chatSession runs the interactive loop.
func chatSession(ctx context.Context, consumer *chat.Consumer) error {
	fmt.Println("Interactive chat. Type /help for commands, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Println("  /new            start a new conversation")
			fmt.Println("  /conversations  list conversations in this context")
			fmt.Println("  /stats          show session statistics")
			fmt.Println("  /quit           exit")
			continue
		case "/new":
			consumer.State().StartNewChat()
			fmt.Println("Started a new conversation.")
			continue
		case "/conversations":
			if err := consumer.RefreshConversations(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "list conversations: %v\n", err)
				continue
			}
			for _, conv := range consumer.State().Conversations() {
				fmt.Printf("  %-6s %-40s %d messages\n", conv.ID, conv.Title, conv.MessageCount)
			}
			continue
		case "/stats":
			printSessionStats()
			continue
		}

		if err := sendMessage(ctx, consumer, line); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
}

// printCitations shows the citations of the latest assistant answer.
func printCitations(state *chat.State) {
	msg, ok := state.LastMessage()
	if !ok || msg.Role != api.RoleAssistant || len(msg.Citations) == 0 {
		return
	}

	fmt.Printf("\nCitations (%d):\n", len(msg.Citations))
	for i, cit := range msg.Citations {
		section := cit.Section
		if cit.SectionTitle != "" {
			section = cit.SectionTitle
		}
		fmt.Printf("  [%d] %s", i+1, section)
		if cit.PageNumber != nil {
			fmt.Printf(" (p. %d)", *cit.PageNumber)
		}
		fmt.Println()
	}
}

// printTranscriptTail prints the last n messages of a resumed conversation.
func printTranscriptTail(state *chat.State, n int) {
	messages := state.Messages()
	if len(messages) > n {
		fmt.Printf("... (%d earlier messages)\n", len(messages)-n)
		messages = messages[len(messages)-n:]
	}
	for _, msg := range messages {
		fmt.Printf("%s: %s\n", msg.Role, msg.Content)
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shodh/internal/api"
	"shodh/internal/client"
)

var (
	projectDescription string
	projectDimensions  string
	projectPaperTitle  string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects for cross-paper chat",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := apiClient.Projects(context.Background())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found")
			return nil
		}

		fmt.Printf("%-6s %-30s %-8s %s\n", "ID", "NAME", "PAPERS", "CREATED")
		fmt.Println("------------------------------------------------------------")
		for _, p := range projects {
			fmt.Printf("%-6s %-30s %-8d %s\n", p.ID, truncate(p.Name, 30), p.PaperCount, p.CreatedAt)
		}
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := apiClient.CreateProject(context.Background(), args[0], projectDescription, projectDimensions)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Printf("Created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteProject(context.Background(), api.ID(args[0])); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	},
}

var projectsAddPaperCmd = &cobra.Command{
	Use:   "add-paper <project-id> <paper-id>",
	Short: "Attach a paper to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := client.PaperAction{PaperID: args[1], Title: projectPaperTitle}
		if err := apiClient.AddPaperToProject(context.Background(), api.ID(args[0]), action); err != nil {
			return fmt.Errorf("add paper: %w", err)
		}
		fmt.Printf("Added %s to project %s\n", args[1], args[0])
		return nil
	},
}

var projectsRemovePaperCmd = &cobra.Command{
	Use:   "remove-paper <project-id> <paper-id>",
	Short: "Detach a paper from a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.RemovePaperFromProject(context.Background(), api.ID(args[0]), args[1]); err != nil {
			return fmt.Errorf("remove paper: %w", err)
		}
		fmt.Printf("Removed %s from project %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectDescription, "description", "", "project description")
	projectsCreateCmd.Flags().StringVar(&projectDimensions, "dimensions", "", "research dimensions to compare papers on")
	projectsAddPaperCmd.Flags().StringVar(&projectPaperTitle, "title", "", "paper title")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	projectsCmd.AddCommand(projectsAddPaperCmd)
	projectsCmd.AddCommand(projectsRemovePaperCmd)
	rootCmd.AddCommand(projectsCmd)
}

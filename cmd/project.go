package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects within the data directory",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		g := openGroup()
		names := g.ListProjects()
		if jsonOutput {
			if err := outputJSON(names); err != nil {
				exitError("encoding JSON: %v", err)
			}
			return
		}
		for _, n := range names {
			fmt.Println(n)
		}
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g := openGroup()
		if _, err := g.CreateProject(args[0]); err != nil {
			exitError("%v", err)
		}
		if err := g.Close(); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("created project %q\n", args[0])
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project and everything in it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g := openGroup()
		if err := g.DeleteProject(args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("deleted project %q\n", args[0])
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd, projectCreateCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}

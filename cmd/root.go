// Package cmd implements vdbctl, a small command-line front end over
// the vectordb embedded store: creating projects and collections,
// loading rows, and running vector searches against a data directory.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diffsec/vectordb"
)

var (
	jsonOutput bool
	dataDir    string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "vdbctl",
	Short: "Command-line front end for the vectordb embedded store",
	Long: `vdbctl opens a vectordb data directory and lets you manage
projects and collections, load rows, and run vector searches from the
shell.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./vdata", "Path to the vectordb data directory")
}

func openGroup() *vectordb.ProjectGroup {
	g, err := vectordb.Open(dataDir)
	if err != nil {
		exitError("opening data directory %q: %v", dataDir, err)
	}
	return g
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func exitError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

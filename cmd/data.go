package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diffsec/vectordb"
)

var (
	upsertFile    string
	searchIndex   string
	searchLimit   int
	searchOffset  int
	searchFilter  string
	searchVectors string
)

var upsertCmd = &cobra.Command{
	Use:   "upsert <collection>",
	Short: "Upsert rows into a collection from a JSON file",
	Long:  `Reads a JSON array of row objects from --file and upserts them.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(upsertFile)
		if err != nil {
			exitError("reading %q: %v", upsertFile, err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			exitError("parsing %q: %v", upsertFile, err)
		}

		col := openCollection(args[0])
		res, err := col.UpsertData(rows)
		if err != nil {
			exitError("%v", err)
		}
		if err := col.Close(); err != nil {
			exitError("%v", err)
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Printf("upserted %d rows\n", len(res.IDs))
	},
}

var countCmd = &cobra.Command{
	Use:   "count <collection>",
	Short: "Print the number of rows in a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		col := openCollection(args[0])
		fmt.Println(col.Count())
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <collection>",
	Short: "Run a vector search against a named index",
	Long: `Runs a nearest-neighbor search. The query vector is a JSON
array of numbers, given via --vector, e.g. --vector '[0.1,0.2,0.3]'.
An optional filter-DSL tree can be given via --filter as a JSON object.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var query []float32
		if err := json.Unmarshal([]byte(searchVectors), &query); err != nil {
			exitError("parsing --vector: %v", err)
		}
		var filterNode any
		if searchFilter != "" {
			if err := json.Unmarshal([]byte(searchFilter), &filterNode); err != nil {
				exitError("parsing --filter: %v", err)
			}
		}

		col := openCollection(args[0])
		res, err := col.SearchByVector(searchIndex, query, searchLimit, searchOffset, filterNode)
		if err != nil {
			exitError("%v", err)
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		for _, item := range res.Data {
			fmt.Printf("%v\tscore=%.4f\t%v\n", item.ID, item.Score, item.Fields)
		}
	},
}

func init() {
	upsertCmd.Flags().StringVar(&collectionProject, "project", vectordb.DefaultProjectName, "Project name")
	upsertCmd.Flags().StringVar(&upsertFile, "file", "", "Path to a JSON file containing an array of rows")
	upsertCmd.MarkFlagRequired("file")

	countCmd.Flags().StringVar(&collectionProject, "project", vectordb.DefaultProjectName, "Project name")
	searchCmd.Flags().StringVar(&collectionProject, "project", vectordb.DefaultProjectName, "Project name")
	searchCmd.Flags().StringVar(&searchIndex, "index", "", "Name of the vector index to search")
	searchCmd.Flags().StringVar(&searchVectors, "vector", "", "Query vector, as a JSON array of numbers")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of hits")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Number of leading hits to skip")
	searchCmd.Flags().StringVar(&searchFilter, "filter", "", "Filter-DSL tree, as a JSON object")
	searchCmd.MarkFlagRequired("index")
	searchCmd.MarkFlagRequired("vector")

	rootCmd.AddCommand(upsertCmd, countCmd, searchCmd)
}

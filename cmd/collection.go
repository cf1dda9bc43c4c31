package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diffsec/vectordb"
)

var (
	collectionProject     string
	collectionFields      []string
	collectionDescription string
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections within a project",
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections in a project",
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		names := p.ListCollections()
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

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Long: `Create a new collection. Schema fields are given with repeated
--field flags of the form name:type[:pk][:dim=N], e.g.

  vdbctl collection create docs \
    --field id:string:pk \
    --field embedding:vector:dim=384 \
    --field category:string`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fields := make([]vectordb.FieldDef, 0, len(collectionFields))
		for _, raw := range collectionFields {
			f, err := parseFieldFlag(raw)
			if err != nil {
				exitError("--field %q: %v", raw, err)
			}
			fields = append(fields, f)
		}
		p := openProject()
		cfg := vectordb.CollectionConfig{Name: args[0], Fields: fields, Description: collectionDescription}
		if _, err := p.CreateCollection(cfg); err != nil {
			exitError("%v", err)
		}
		if err := p.Close(); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("created collection %q in project %q\n", args[0], collectionProject)
	},
}

var collectionDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Drop a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		if err := p.DropCollection(args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("dropped collection %q\n", args[0])
	},
}

var collectionIndexCmd = &cobra.Command{
	Use:   "index <collection> <index-name>",
	Short: "Create a named vector index on a collection",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hnsw, _ := cmd.Flags().GetBool("hnsw")
		col := openCollection(args[0])
		cfg := vectordb.DefaultIndexConfig()
		if hnsw {
			cfg.IndexType = "hnsw"
		}
		if err := col.CreateIndex(args[1], cfg); err != nil {
			exitError("%v", err)
		}
		if err := col.Close(); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("created index %q on collection %q\n", args[1], args[0])
	},
}

func init() {
	collectionCmd.PersistentFlags().StringVar(&collectionProject, "project", vectordb.DefaultProjectName, "Project name")
	collectionCreateCmd.Flags().StringArrayVar(&collectionFields, "field", nil, "Schema field, name:type[:pk][:dim=N]")
	collectionCreateCmd.Flags().StringVar(&collectionDescription, "description", "", "Collection description")
	collectionIndexCmd.Flags().Bool("hnsw", false, "Use an HNSW index instead of the default flat index")

	collectionCmd.AddCommand(collectionListCmd, collectionCreateCmd, collectionDropCmd, collectionIndexCmd)
	rootCmd.AddCommand(collectionCmd)
}

func openProject() *vectordb.Project {
	g := openGroup()
	p, err := g.Project(collectionProject)
	if err != nil {
		p, err = g.CreateProject(collectionProject)
		if err != nil {
			exitError("%v", err)
		}
	}
	return p
}

func openCollection(name string) *vectordb.Collection {
	p := openProject()
	col, err := p.Collection(name)
	if err != nil {
		exitError("%v", err)
	}
	return col
}

// parseFieldFlag parses a name:type[:pk][:dim=N] schema field spec.
func parseFieldFlag(s string) (vectordb.FieldDef, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return vectordb.FieldDef{}, fmt.Errorf("expected name:type, got %q", s)
	}
	f := vectordb.FieldDef{Name: parts[0], Type: vectordb.ParseFieldType(parts[1])}
	for _, opt := range parts[2:] {
		if opt == "pk" {
			f.IsPrimaryKey = true
			continue
		}
		if strings.HasPrefix(opt, "dim=") {
			dim, err := strconv.Atoi(strings.TrimPrefix(opt, "dim="))
			if err != nil {
				return vectordb.FieldDef{}, fmt.Errorf("invalid dim: %v", err)
			}
			f.Dim = dim
			continue
		}
		return vectordb.FieldDef{}, fmt.Errorf("unknown field option %q", opt)
	}
	return f, nil
}

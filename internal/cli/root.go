// Package cli implements the musypher command line tool: compile fuzzy
// pattern queries, send them to a score store, write queries from note
// lists and inspect the store's contents.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/musypher/internal/core"
	"github.com/agenthands/musypher/internal/driver"
)

var (
	flagURI      string
	flagUser     string
	flagPassword string
)

var rootCmd = &cobra.Command{
	Use:           "musypher",
	Short:         "Search symbolic music notation under fuzzy tolerance",
	Long:          "musypher compiles fuzzy melodic/rhythmic pattern queries into exact\ngraph queries, runs them against a Neo4j score store and ranks the\nresults by match degree.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagURI, "uri", "U", "bolt://localhost:7687", "URI of the Neo4j database")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "neo4j", "username to access the database")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "password to access the database")
}

// Execute runs the root command; errors go to stderr with a non-zero exit.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newService connects to the store. The returned func closes the driver.
func newService() (*core.Service, func(), error) {
	d, err := driver.NewNeo4jDriver(flagURI, flagUser, flagPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	closeFn := func() { _ = d.Close(context.Background()) }
	return core.NewService(d, nil), closeFn, nil
}

// readQueryArg resolves a positional argument that is either the text
// itself or, with the file flag set, the name of a file holding it.
func readQueryArg(arg string, fromFile bool) (string, error) {
	if !fromFile {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return string(data), nil
}

// writeOutput prints content to stdout, or writes it to path when set.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

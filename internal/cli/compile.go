package cli

import (
	"github.com/spf13/cobra"

	"github.com/agenthands/musypher/internal/core/compiler"
	"github.com/agenthands/musypher/internal/core/parse"
)

var (
	compileFromFile bool
	compileOutput   string
)

var compileCmd = &cobra.Command{
	Use:     "compile QUERY",
	Aliases: []string{"c"},
	Short:   "compile a fuzzy query to an exact one",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readQueryArg(args[0], compileFromFile)
		if err != nil {
			return err
		}
		q, err := parse.Parse(text)
		if err != nil {
			return err
		}
		crisp, err := compiler.Compile(q)
		if err != nil {
			return err
		}
		return writeOutput(cmd, compileOutput, crisp)
	},
}

func init() {
	compileCmd.Flags().BoolVarP(&compileFromFile, "file", "F", false, "treat QUERY as a file name instead of raw query text")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(compileCmd)
}

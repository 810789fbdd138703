package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	listPerLine int
	listOutput  string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "list the available songs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		sources, err := svc.ListSources(cmd.Context())
		if err != nil {
			return err
		}
		return writeOutput(cmd, listOutput, formatColumns(sources, listPerLine))
	},
}

// formatColumns lays sources out n per line; n == 0 puts them all on one.
func formatColumns(sources []string, n int) string {
	if n <= 0 {
		return strings.Join(sources, " ")
	}
	var lines []string
	for i := 0; i < len(sources); i += n {
		end := i + n
		if end > len(sources) {
			end = len(sources)
		}
		lines = append(lines, strings.Join(sources[i:end], " "))
	}
	return strings.Join(lines, "\n")
}

func init() {
	listCmd.Flags().IntVarP(&listPerLine, "number-per-line", "n", 1, "sources per line; 0 puts all on one line")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(listCmd)
}

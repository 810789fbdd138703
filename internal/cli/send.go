package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sendFromFile   bool
	sendFuzzy      bool
	sendJSON       bool
	sendTextOutput string
)

var sendCmd = &cobra.Command{
	Use:     "send QUERY",
	Aliases: []string{"s"},
	Short:   "send a query to the store and print the result",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readQueryArg(args[0], sendFromFile)
		if err != nil {
			return err
		}
		svc, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()
		ctx := cmd.Context()

		if sendFuzzy {
			if sendJSON {
				unified, err := svc.SearchUnified(ctx, text)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(unified, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(cmd, sendTextOutput, string(out))
			}
			report, err := svc.SearchText(ctx, text)
			if err != nil {
				return err
			}
			return writeOutput(cmd, sendTextOutput, report)
		}

		rows, err := svc.ExecuteCrisp(ctx, text)
		if err != nil {
			return err
		}
		if sendJSON {
			out, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, sendTextOutput, string(out))
		}
		for _, row := range rows {
			fmt.Fprintln(cmd.OutOrStdout(), row)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolVarP(&sendFromFile, "file", "F", false, "treat QUERY as a file name instead of raw query text")
	sendCmd.Flags().BoolVarP(&sendFuzzy, "fuzzy", "f", false, "the query is fuzzy: compile it and rank the results")
	sendCmd.Flags().BoolVarP(&sendJSON, "json", "j", false, "print the result as JSON")
	sendCmd.Flags().StringVarP(&sendTextOutput, "text-output", "t", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(sendCmd)
}

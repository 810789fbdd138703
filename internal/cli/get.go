package cli

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agenthands/musypher/internal/core/model"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:     "get SOURCE NUMBER",
	Aliases: []string{"g"},
	Short:   "get the first notes of a song",
	Long: `Get the NUMBER opening notes of SOURCE, printed in the JSON note-list
form the write command accepts. Use the list command to see the
available sources.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := strconv.Atoi(args[1])
		if err != nil {
			return &model.ValidationError{Field: "number", Msg: "must be an integer"}
		}
		svc, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer closeFn()

		chords, err := svc.FirstNotes(cmd.Context(), args[0], k)
		if err != nil {
			return err
		}

		entries := make([][]interface{}, len(chords))
		for i, c := range chords {
			pitches := make([]string, len(c.Pitches))
			for j, p := range c.Pitches {
				pitches[j] = p.String()
			}
			entries[i] = []interface{}{pitches, c.Duration.Value, c.Duration.Dots}
		}
		out, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		return writeOutput(cmd, getOutput, string(out))
	},
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(getCmd)
}

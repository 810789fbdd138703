package cli

import (
	"github.com/spf13/cobra"

	"github.com/agenthands/musypher/internal/core/model"
	"github.com/agenthands/musypher/internal/core/pattern"
)

var (
	writeFromFile    bool
	writeOutputPath  string
	writeContour     bool
	writePitchDist   float64
	writeDurFactor   float64
	writeDurGap      float64
	writeAlpha       float64
	writeTransp      bool
	writeHomothety   bool
	writeIncipitOnly bool
	writeCollection  string
)

var writeCmd = &cobra.Command{
	Use:     "write NOTES",
	Aliases: []string{"w"},
	Short:   "write a fuzzy query from a note list or a contour",
	Long: `Write a fuzzy query from a JSON note list such as
  [[["c#/5","d/5"],4,0], [["c/5"],16,0]]
(each entry: pitches, duration denominator, optional dots), or with
--contour from a shape string such as "URd-MsX" (melodic then rhythmic
symbols, separated by '-').`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readQueryArg(args[0], writeFromFile)
		if err != nil {
			return err
		}
		scope := pattern.Scope{IncipitOnly: writeIncipitOnly, Collection: writeCollection}

		var query string
		if writeContour {
			contour, err := pattern.ParseContour(input)
			if err != nil {
				return err
			}
			query, err = pattern.FromContour(contour, scope)
			if err != nil {
				return err
			}
		} else {
			notes, err := pattern.ParseNotes(input)
			if err != nil {
				return err
			}
			params := model.FuzzyParams{
				PitchDistance:      writePitchDist,
				DurationFactor:     writeDurFactor,
				DurationGap:        writeDurGap,
				Alpha:              writeAlpha,
				AllowTransposition: writeTransp,
				AllowHomothety:     writeHomothety,
			}
			query, err = pattern.FromNotes(notes, params, scope)
			if err != nil {
				return err
			}
		}
		return writeOutput(cmd, writeOutputPath, query)
	},
}

func init() {
	writeCmd.Flags().BoolVarP(&writeFromFile, "file", "F", false, "treat NOTES as a file name (files made with the get command work here)")
	writeCmd.Flags().StringVarP(&writeOutputPath, "output", "o", "", "write the result to this file instead of stdout")
	writeCmd.Flags().BoolVar(&writeContour, "contour", false, "NOTES is a contour string instead of a note list")
	writeCmd.Flags().Float64VarP(&writePitchDist, "pitch-distance", "p", 0.0, "pitch tolerance in tones")
	writeCmd.Flags().Float64VarP(&writeDurFactor, "duration-factor", "f", 1.0, "multiplicative duration tolerance, 1.0 is exact")
	writeCmd.Flags().Float64VarP(&writeDurGap, "duration-gap", "g", 0.0, "maximum inserted-note time budget, in whole notes")
	writeCmd.Flags().Float64VarP(&writeAlpha, "alpha", "a", 0.0, "minimum acceptable match degree, in [0, 1]")
	writeCmd.Flags().BoolVarP(&writeTransp, "allow-transposition", "t", false, "match on pitch intervals instead of absolute pitches")
	writeCmd.Flags().BoolVar(&writeHomothety, "allow-homothety", false, "match on duration ratios instead of absolute durations")
	writeCmd.Flags().BoolVar(&writeIncipitOnly, "incipit-only", false, "only match occurrences at the start of a piece")
	writeCmd.Flags().StringVar(&writeCollection, "collection", "", "restrict the search to this collection")
	rootCmd.AddCommand(writeCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sweeper/internal/media"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify FILENAME...",
		Short: "Show how filenames would be classified and routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, name := range args {
				match := media.Classify(name)
				rows = append(rows, []string{
					name,
					string(match.Kind),
					match.SeriesHint,
					categoryFor(match.Kind),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Filename", "Kind", "Episode", "Category"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

func categoryFor(kind media.Kind) string {
	switch kind {
	case media.KindEpisode:
		return "series"
	case media.KindMovie:
		return "movies"
	case media.KindMarker:
		return "(deleted)"
	case media.KindArchivePart:
		return "(extracted first)"
	default:
		return "others"
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type chapterRow struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Href   string `json:"href"`
	Linear bool   `json:"linear"`
	Bytes  int    `json:"bytes"`
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <book>",
		Short: "List the spine in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := ctx.openBook(args[0])
			if err != nil {
				return err
			}
			defer book.Close()

			var chapters []chapterRow
			for ch, err := range book.Chapters() {
				if err != nil {
					return err
				}
				chapters = append(chapters, chapterRow{
					Index:  ch.Index,
					ID:     ch.ID,
					Href:   ch.Href,
					Linear: ch.Linear,
					Bytes:  len(ch.Content),
				})
				ctx.logger.Debug("chapter read", "index", ch.Index, "href", ch.Href)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, chapters)
			}
			rows := make([][]string, 0, len(chapters))
			for _, ch := range chapters {
				rows = append(rows, []string{
					strconv.Itoa(ch.Index),
					ch.ID,
					ch.Href,
					strconv.FormatBool(ch.Linear),
					strconv.Itoa(ch.Bytes),
				})
			}
			headers := []string{"#", "ID", "Href", "Linear", "Bytes"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(ctx.style(cmd), headers, rows, aligns))
			return err
		},
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/simp-lee/epubkit/cfi"
)

type cfiOutput struct {
	CFI      string     `json:"cfi"`
	Position int        `json:"spine_position"`
	ID       string     `json:"id"`
	Href     string     `json:"href"`
	Paths    int        `json:"paths"`
	Range    *cfi.Range `json:"range,omitempty"`
}

func newCFICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cfi <book> <expression>",
		Short: "Resolve a CFI to the spine item it points at",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := cfi.Parse(args[1])
			if err != nil {
				return err
			}

			book, err := ctx.openBook(args[0])
			if err != nil {
				return err
			}
			defer book.Close()

			n, err := book.ResolveCFI(loc)
			if err != nil {
				return err
			}
			item, _, err := book.Package().Chapter(n)
			if err != nil {
				return err
			}

			out := cfiOutput{
				CFI:      loc.String(),
				Position: n,
				ID:       item.ID,
				Href:     book.ResolvePath(item.Href),
				Paths:    len(loc.Paths),
				Range:    loc.Range,
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, out)
			}
			rows := [][]string{
				{"CFI", out.CFI},
				{"Spine position", strconv.Itoa(out.Position)},
				{"Item", out.ID},
				{"Href", out.Href},
			}
			if r := out.Range; r != nil {
				rows = append(rows,
					[]string{"Range start", fmt.Sprintf("node %d offset %d", r.Start.Node(), r.Start.Offset)},
					[]string{"Range end", fmt.Sprintf("node %d offset %d", r.End.Node(), r.End.Offset)},
				)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(ctx.style(cmd), []string{"Field", "Value"}, rows, nil))
			return err
		},
	}
}

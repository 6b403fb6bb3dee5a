package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	epub "github.com/simp-lee/epubkit"
)

type tocNode struct {
	Text     string    `json:"text"`
	Href     string    `json:"href"`
	Path     string    `json:"path,omitempty"`
	Children []tocNode `json:"children,omitempty"`
}

func newTOCCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toc <book>",
		Short: "Print the table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := ctx.openBook(args[0])
			if err != nil {
				return err
			}
			defer book.Close()

			items := book.TableOfContents()
			if ctx.jsonOutput() {
				return writeJSON(cmd, toTOCNodes(book, items))
			}
			if len(items) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No table of contents")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTree(ctx.style(cmd), items))
			return err
		},
	}
}

// toTOCNodes converts the navigation tree, adding the archive path each
// href resolves to.
func toTOCNodes(book *epub.Book, items []epub.NavItem) []tocNode {
	if len(items) == 0 {
		return nil
	}
	nodes := make([]tocNode, 0, len(items))
	for _, item := range items {
		n := tocNode{Text: item.Text, Href: item.Href}
		if item.Href != "" {
			n.Path = book.ResolvePath(stripFragment(item.Href))
		}
		n.Children = toTOCNodes(book, item.Children)
		nodes = append(nodes, n)
	}
	return nodes
}

func stripFragment(href string) string {
	p, _, _ := strings.Cut(href, "#")
	return p
}

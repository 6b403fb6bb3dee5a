package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	epub "github.com/simp-lee/epubkit"
)

type bookInfo struct {
	Title       string   `json:"title"`
	Version     string   `json:"version"`
	PackagePath string   `json:"package_path"`
	Manifest    int      `json:"manifest_items"`
	Spine       int      `json:"spine_items"`
	Navigation  string   `json:"navigation"`
	TOCEntries  int      `json:"toc_entries"`
	Cover       string   `json:"cover,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <book>",
		Short: "Summarise the package document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := ctx.openBook(args[0])
			if err != nil {
				return err
			}
			defer book.Close()

			info, err := collectInfo(book)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, info)
			}

			rows := [][]string{
				{"Title", info.Title},
				{"Version", info.Version},
				{"Package", info.PackagePath},
				{"Manifest items", strconv.Itoa(info.Manifest)},
				{"Spine items", strconv.Itoa(info.Spine)},
				{"Navigation", info.Navigation},
				{"TOC entries", strconv.Itoa(info.TOCEntries)},
				{"Cover", info.Cover},
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(ctx.style(cmd), []string{"Field", "Value"}, rows, nil))
			return err
		},
	}
}

func collectInfo(book *epub.Book) (bookInfo, error) {
	pkg := book.Package()
	info := bookInfo{
		Title:       book.Title(),
		Version:     pkg.Version(),
		PackagePath: pkg.Path,
		Manifest:    len(pkg.Manifest),
		Spine:       len(pkg.Spine),
		Navigation:  navigationSource(pkg),
		TOCEntries:  countEntries(book.Navigation()),
		Warnings:    book.Warnings(),
	}
	cover, err := book.Cover()
	switch {
	case err == nil:
		info.Cover = cover.Path
	case errors.Is(err, epub.ErrNoCover):
	default:
		return bookInfo{}, err
	}
	return info, nil
}

// navigationSource names the document the table of contents was read
// from, using the same manifest ids the library looks for.
func navigationSource(pkg *epub.Package) string {
	if _, ok := pkg.GetManifest("nav"); ok {
		return "nav"
	}
	if _, ok := pkg.GetManifest("ncx"); ok {
		return "ncx"
	}
	return "none"
}

func countEntries(nav *epub.Navigation) int {
	if nav == nil {
		return 0
	}
	return len(nav.Flatten())
}

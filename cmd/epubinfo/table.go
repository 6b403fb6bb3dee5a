package main

import (
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	epub "github.com/simp-lee/epubkit"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func tableStyle(style string) table.Style {
	switch style {
	case "rounded":
		return table.StyleRounded
	case "light":
		return table.StyleLight
	default:
		return table.StyleDefault
	}
}

func renderTable(style string, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(tableStyle(style))

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func listStyle(style string) list.Style {
	switch style {
	case "rounded":
		return list.StyleConnectedRounded
	case "light":
		return list.StyleConnectedLight
	default:
		return list.StyleDefault
	}
}

// renderTree draws the navigation tree, one item per line.
func renderTree(style string, items []epub.NavItem) string {
	lw := list.NewWriter()
	lw.SetStyle(listStyle(style))
	var walk func([]epub.NavItem)
	walk = func(items []epub.NavItem) {
		for _, item := range items {
			label := item.Text
			if item.Href != "" {
				label += "  (" + item.Href + ")"
			}
			lw.AppendItem(label)
			if len(item.Children) > 0 {
				lw.Indent()
				walk(item.Children)
				lw.UnIndent()
			}
		}
	}
	walk(items)
	return lw.Render()
}

// Package main hosts the epubinfo command, a small inspector for ePub
// books. Subcommands print the package summary, the table of contents,
// the spine, a content document with its resources rewritten, and the
// spine position a CFI points at.
package main

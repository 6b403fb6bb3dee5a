package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	epub "github.com/simp-lee/epubkit"
	"github.com/simp-lee/epubkit/internal/config"
)

type globalFlags struct {
	config   string
	logLevel string
	json     bool
}

type commandContext struct {
	flags  *globalFlags
	config *config.Config
	logger *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once, applies flag overrides and
// builds the logger.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
	if err != nil {
		return nil, err
	}
	if c.flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(c.flags.logLevel))
	}
	if c.flags.json {
		cfg.Output.Format = "json"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.config = cfg
	c.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	c.logger.Debug("configuration loaded", "path", path, "exists", exists)
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// openBook opens name and logs the warnings gathered while opening it.
func (c *commandContext) openBook(name string) (*epub.Book, error) {
	book, err := epub.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	for _, w := range book.Warnings() {
		c.logger.Warn("book warning", "book", name, "warning", w)
	}
	return book, nil
}

func (c *commandContext) jsonOutput() bool {
	return c.config.Output.Format == "json"
}

// style resolves the "auto" output style against the command's stdout.
func (c *commandContext) style(cmd *cobra.Command) string {
	if s := c.config.Output.Style; s != "auto" {
		return s
	}
	if isTerminal(cmd.OutOrStdout()) {
		return "rounded"
	}
	return "plain"
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

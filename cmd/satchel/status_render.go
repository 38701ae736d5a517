package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusIndent     = "  "
	statusLabelWidth = 14
	statusKindWidth  = 5
)

// renderStatusLine prints one "label  kind  detail" status row. Only the
// kind marker is colored so the detail text stays copy-paste clean.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	marker := fmt.Sprintf("%-*s", statusKindWidth, statusKindLabel(kind))
	if colorize {
		if color := statusKindColor(kind); color != "" {
			marker = color + marker + ansiReset
		}
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label, marker)
	if message != "" {
		line += " " + message
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "ok"
	case statusWarn:
		return "warn"
	case statusError:
		return "error"
	default:
		return "info"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// renderSectionHeader underlines the section title.
func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("=", len(title))
	if colorize {
		title = ansiBlue + title + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{title, rule}
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

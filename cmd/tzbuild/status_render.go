package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind selects the bracketed label and color for a status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

func (k statusKind) style() (label, color string) {
	s, ok := statusStyles[k]
	if !ok {
		s = statusStyles[statusInfo]
	}
	return s.label, s.color
}

// renderStatusLine formats one aligned "Label:  [KIND] message" row.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	kindLabel, color := kind.style()
	statusText := "[" + kindLabel + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("  %-20s %s", label+":", statusText)
	if !colorize || color == "" {
		return base
	}
	return color + base + ansiReset
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if !colorize {
		return line
	}
	_, color := statusInfo.style()
	return color + line + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

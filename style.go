package main

import (
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	te "github.com/muesli/termenv"
)

const wrapAt = 78

var colorProfile = te.ColorProfile()

// keyword renders a highlighted word for help text.
func keyword(s string) string {
	return te.String(s).Foreground(colorProfile.Color("#AD58B4")).Bold().String()
}

// paragraph wraps and indents help text the way the rest of the CLI
// output is formatted.
func paragraph(s string) string {
	s = wordwrap.String(s, wrapAt)
	s = indent.String(s, 2)
	return strings.TrimRight(s, "\n")
}

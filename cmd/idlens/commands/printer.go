package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"idlens/internal/identity/models"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func init() {
	// NO_COLOR still wins; otherwise keep colors when piped
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Success(format string, a ...any) {
	green.Fprintf(p.w, "✓ "+format, a...)
}

func (p *printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.w, "! "+format, a...)
}

func (p *printer) Failure(format string, a ...any) {
	red.Fprintf(p.w, "✗ "+format, a...)
}

func (p *printer) Info(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Identity prints the fields an identity actually has, one per line.
func (p *printer) Identity(id models.Identity) {
	name := id.Name
	if name == "" {
		name = "(no name)"
	}
	cyan.Fprintf(p.w, "%s\n", name)
	if id.AbbreviatedKey != "" {
		fmt.Fprintf(p.w, "  Key:    %s\n", id.AbbreviatedKey)
	}
	if id.AvatarURL != "" {
		fmt.Fprintf(p.w, "  Avatar: %s\n", id.AvatarURL)
	}
	if id.HasBadge() {
		fmt.Fprintf(p.w, "  Badge:  %s\n", id.BadgeLabel)
		if id.BadgeClickURL != "" {
			faint.Fprintf(p.w, "          %s\n", id.BadgeClickURL)
		}
	}
}
